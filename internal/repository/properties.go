package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fajarsembar01/home/internal/model"
	"github.com/fajarsembar01/home/internal/utils"
)

// listingColumns are the ExtractedListing columns of the properties table
var listingColumns = []string{
	"property_type", "transaction_type", "condition",
	"address", "district", "city", "province",
	"price", "rent_price", "negotiable",
	"land_area", "building_area", "dimensions",
	"bedrooms", "bathrooms", "floors", "carports", "garages", "year_built",
	"electricity", "orientation", "water_type", "furnished", "row_road", "phone_line_count",
	"certificate_type", "kpr", "imb", "blueprint",
	"facilities",
	"description", "contact_name", "contact_phone", "contact_whatsapp",
	"property_url", "agent_url", "video_review_url",
}

var (
	propertyColumns = "id, user_id, " + strings.Join(listingColumns, ", ") +
		", price_per_meter, status, created_at, updated_at"

	insertPropertyQuery = fmt.Sprintf(
		`INSERT INTO properties (user_id, %s, price_per_meter, status)
		VALUES (:user_id, %s, :price_per_meter, :status)
		RETURNING %s`,
		strings.Join(listingColumns, ", "),
		namedList(listingColumns),
		propertyColumns,
	)

	updatePropertyQuery = fmt.Sprintf(
		`UPDATE properties SET %s, price_per_meter = :price_per_meter, status = :status, updated_at = NOW()
		WHERE id = :id AND user_id = :user_id
		RETURNING %s`,
		namedAssignments(listingColumns),
		propertyColumns,
	)
)

func namedList(cols []string) string {
	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	return strings.Join(named, ", ")
}

func namedAssignments(cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = :" + c
	}
	return strings.Join(sets, ", ")
}

// CreateProperty inserts a listing and returns the stored row
func (r *PostgresRepository) CreateProperty(ctx context.Context, p *model.Property) (*model.Property, error) {
	if p.Status == "" {
		p.Status = model.StatusActive
	}
	p.ComputePricePerMeter()

	rows, err := r.db.NamedQueryContext(ctx, insertPropertyQuery, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to create property: %w", err)
		}
		return nil, fmt.Errorf("failed to create property: no row returned")
	}

	var created model.Property
	if err := rows.StructScan(&created); err != nil {
		return nil, fmt.Errorf("failed to scan property: %w", err)
	}
	return &created, nil
}

// GetProperty returns a property owned by userID
func (r *PostgresRepository) GetProperty(ctx context.Context, userID, id int64) (*model.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1 AND user_id = $2`

	var p model.Property
	if err := r.db.GetContext(ctx, &p, query, id, userID); err != nil {
		return nil, notFound(err, "get property")
	}
	return &p, nil
}

// UpdateProperty overwrites every listing column of an owned property
func (r *PostgresRepository) UpdateProperty(ctx context.Context, p *model.Property) (*model.Property, error) {
	p.ComputePricePerMeter()

	rows, err := r.db.NamedQueryContext(ctx, updatePropertyQuery, p)
	if err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to update property: %w", err)
		}
		return nil, ErrNotFound
	}

	var updated model.Property
	if err := rows.StructScan(&updated); err != nil {
		return nil, fmt.Errorf("failed to scan property: %w", err)
	}
	return &updated, nil
}

// DeleteProperty removes an owned property; images cascade
func (r *PostgresRepository) DeleteProperty(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// whereBuilder collects AND-ed conditions with $n placeholders
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

// add appends a condition; every %d in format is replaced by the new
// argument's placeholder index.
func (w *whereBuilder) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	n := len(w.args)
	w.clauses = append(w.clauses, strings.ReplaceAll(format, "%d", fmt.Sprint(n)))
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(w.clauses, " AND ")
}

func (r *PostgresRepository) paginate(ctx context.Context, w *whereBuilder, orderBy string, limit, offset int) ([]model.Property, int, error) {
	whereClause := w.String()

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM properties WHERE %s", whereClause)
	if err := r.db.GetContext(ctx, &total, countQuery, w.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count results: %w", err)
	}

	n := len(w.args)
	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		propertyColumns, whereClause, orderBy, n+1, n+2)

	args := append(append([]interface{}{}, w.args...), limit, offset)

	var properties []model.Property
	if err := r.db.SelectContext(ctx, &properties, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch properties: %w", err)
	}
	return properties, total, nil
}

// ListProperties returns a user's properties, newest first
func (r *PostgresRepository) ListProperties(ctx context.Context, userID int64, limit, offset int) ([]model.Property, int, error) {
	w := &whereBuilder{}
	w.add("user_id = $%d", userID)
	return r.paginate(ctx, w, "created_at DESC, id DESC", limit, offset)
}

// SearchAdvanced applies a structured filter to a user's properties
func (r *PostgresRepository) SearchAdvanced(ctx context.Context, userID int64, filter model.SearchFilter, limit, offset int) ([]model.Property, int, error) {
	w := &whereBuilder{}
	w.add("user_id = $%d", userID)

	if filter.PropertyType != nil {
		w.add("property_type ILIKE $%d", "%"+*filter.PropertyType+"%")
	}
	if filter.LocationKeyword != nil {
		w.add("(city ILIKE $%d OR district ILIKE $%d OR address ILIKE $%d)", "%"+*filter.LocationKeyword+"%")
	}
	if filter.MinPrice != nil {
		w.add("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		w.add("price <= $%d", *filter.MaxPrice)
	}
	if filter.MinBedrooms != nil {
		w.add("bedrooms >= $%d", *filter.MinBedrooms)
	}
	if filter.MinLandArea != nil {
		w.add("land_area >= $%d", *filter.MinLandArea)
	}
	// JSONB facilities filtering - fuzzy matching with common aliases
	if len(filter.MustHaveFacilities) > 0 {
		conds, params, _ := utils.BuildFuzzyFacilityQuery(filter.MustHaveFacilities, len(w.args)+1)
		w.clauses = append(w.clauses, conds...)
		w.args = append(w.args, params...)
	}

	return r.paginate(ctx, w, "created_at DESC, id DESC", limit, offset)
}

// SearchKeyword matches a keyword against address, description, city,
// district and property type
func (r *PostgresRepository) SearchKeyword(ctx context.Context, userID int64, keyword string, limit, offset int) ([]model.Property, int, error) {
	w := &whereBuilder{}
	w.add("user_id = $%d", userID)
	w.add(`(address ILIKE $%d OR description ILIKE $%d OR city ILIKE $%d
		OR district ILIKE $%d OR property_type ILIKE $%d)`, "%"+keyword+"%")

	return r.paginate(ctx, w, "created_at DESC, id DESC", limit, offset)
}

// ListByLocation filters by exact city/district and price band, cheapest first
func (r *PostgresRepository) ListByLocation(ctx context.Context, userID int64, f model.LocationFilter, limit, offset int) ([]model.Property, int, error) {
	w := &whereBuilder{}
	w.add("user_id = $%d", userID)

	if f.City != "" {
		w.add("city = $%d", f.City)
	}
	if f.District != "" {
		w.add("district = $%d", f.District)
	}
	if f.MinPrice != nil {
		w.add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("price <= $%d", *f.MaxPrice)
	}

	return r.paginate(ctx, w, "price ASC NULLS LAST, id ASC", limit, offset)
}

// ListCities returns the distinct non-empty cities of a user's properties
func (r *PostgresRepository) ListCities(ctx context.Context, userID int64) ([]string, error) {
	query := `
		SELECT DISTINCT city FROM properties
		WHERE user_id = $1 AND city IS NOT NULL AND city <> ''
		ORDER BY city`

	cities := []string{}
	if err := r.db.SelectContext(ctx, &cities, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	return cities, nil
}

// ListDistricts returns the distinct non-empty districts within a city
func (r *PostgresRepository) ListDistricts(ctx context.Context, userID int64, city string) ([]string, error) {
	query := `
		SELECT DISTINCT district FROM properties
		WHERE user_id = $1 AND city = $2 AND district IS NOT NULL AND district <> ''
		ORDER BY district`

	districts := []string{}
	if err := r.db.SelectContext(ctx, &districts, query, userID, city); err != nil {
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}
	return districts, nil
}

// GetStats counts a user's properties by status, type and transaction
func (r *PostgresRepository) GetStats(ctx context.Context, userID int64) (*model.Stats, error) {
	stats := &model.Stats{
		ByType:        map[string]int{},
		ByTransaction: map[string]int{},
	}

	err := r.db.QueryRowxContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'active')
		FROM properties WHERE user_id = $1`, userID).Scan(&stats.Total, &stats.Active)
	if err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}
	stats.Inactive = stats.Total - stats.Active

	if err := r.groupCount(ctx, "property_type", userID, stats.ByType); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, "transaction_type", userID, stats.ByTransaction); err != nil {
		return nil, err
	}
	return stats, nil
}

// groupCount fills dst with per-value counts of a fixed column name
func (r *PostgresRepository) groupCount(ctx context.Context, column string, userID int64, dst map[string]int) error {
	query := fmt.Sprintf(`SELECT %s AS key, COUNT(*) AS count FROM properties WHERE user_id = $1 GROUP BY %s`, column, column)

	var rows []struct {
		Key   string `db:"key"`
		Count int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return fmt.Errorf("failed to group by %s: %w", column, err)
	}
	for _, row := range rows {
		dst[row.Key] = row.Count
	}
	return nil
}

// ExpireStale marks active properties not updated since cutoff as inactive
func (r *PostgresRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE properties SET status = $1, updated_at = NOW()
		WHERE status = $2 AND updated_at < $3`,
		model.StatusInactive, model.StatusActive, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire properties: %w", err)
	}
	return res.RowsAffected()
}

// AddImage attaches an image. A primary image demotes the previous one.
func (r *PostgresRepository) AddImage(ctx context.Context, img *model.PropertyImage) (*model.PropertyImage, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if img.IsPrimary {
		if _, err := tx.ExecContext(ctx,
			`UPDATE property_images SET is_primary = FALSE WHERE property_id = $1 AND is_primary`,
			img.PropertyID); err != nil {
			return nil, fmt.Errorf("failed to reset primary image: %w", err)
		}
	}

	var created model.PropertyImage
	err = tx.GetContext(ctx, &created, `
		INSERT INTO property_images (property_id, file_id, file_path, caption, is_primary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, property_id, file_id, file_path, caption, is_primary, created_at`,
		img.PropertyID, img.FileID, img.FilePath, img.Caption, img.IsPrimary)
	if err != nil {
		return nil, fmt.Errorf("failed to add image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit image: %w", err)
	}
	return &created, nil
}

// ListImages returns a property's images, primary first
func (r *PostgresRepository) ListImages(ctx context.Context, propertyID int64) ([]model.PropertyImage, error) {
	images := []model.PropertyImage{}
	err := r.db.SelectContext(ctx, &images, `
		SELECT id, property_id, file_id, file_path, caption, is_primary, created_at
		FROM property_images WHERE property_id = $1
		ORDER BY is_primary DESC, id ASC`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}
