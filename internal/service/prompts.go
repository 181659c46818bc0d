package service

import (
	"fmt"
	"strings"
	"text/template"
)

// defaultTemperature keeps extraction close to deterministic
const defaultTemperature = 0.1

var extractionTemplate = template.Must(template.New("extraction").Parse(
	`Anda adalah asisten yang mengubah iklan properti berbahasa Indonesia menjadi data terstruktur.

Balas HANYA dengan satu objek JSON memakai key berikut (isi null bila tidak disebutkan):
{
  "property_type": "rumah | apartemen | tanah | ruko | villa | kost | gudang | kantor | lainnya",
  "condition": "Baru | Bekas | Siap Huni | Butuh Renovasi",
  "transaction_type": "jual | sewa | jual sewa",
  "address": "alamat / nama komplek",
  "district": "kecamatan",
  "city": "kota / kabupaten",
  "province": "provinsi",
  "price": 1300000000,
  "rent_price": 50000000,
  "negotiable": true,
  "land_area": 180,
  "building_area": 200,
  "dimensions": "12 x 15",
  "bedrooms": 3,
  "bathrooms": 2,
  "floors": 2,
  "carports": 1,
  "garages": 1,
  "year_built": 2020,
  "electricity": 2200,
  "orientation": "Utara",
  "water_type": "PDAM | Sumur",
  "furnished": "Full | Semi | Kosongan",
  "row_road": "2 mobil",
  "phone_line_count": 1,
  "certificate_type": "SHM | SHGB | AJB | Girik | Lainnya",
  "kpr": true,
  "imb": true,
  "blueprint": false,
  "facilities": ["carport", "taman"],
  "description": "ringkasan singkat",
  "contact_name": "nama",
  "contact_phone": "081234567890",
  "contact_whatsapp": "081234567890",
  "property_url": "https://...",
  "agent_url": "https://...",
  "video_review_url": "https://..."
}

Aturan:
1. Semua harga berupa angka rupiah tanpa titik atau koma.
2. "M", "miliar", "milyar" setelah angka berarti miliar; "juta" atau "jt" berarti juta; "Rp" tanpa satuan berarti angka apa adanya ("Rp 850.000.000" -> 850000000).
3. Huruf "M" bisa berarti miliar atau meter. Jika didahului "Rp", "harga", "jual" atau "sewa" maka miliar ("Harga 1.3M" -> 1300000000). Jika didahului "LT", "LB", "luas", "panjang" atau "lebar" maka meter ("LT 180M" -> land_area 180) dan BUKAN harga.
4. Pola "12x15" atau "12 x 15" adalah dimensi, isi ke "dimensions". Jangan dijadikan harga atau luas.
5. Jika ada deretan harga turun ("1.650M >> 1.350M >> 1.300M"), ambil harga TERAKHIR sebagai "price". Kata "nego" atau "negotiable" di mana pun berarti negotiable = true.
6. "KT 3+1" atau "3+1 KT" berarti bedrooms = 3; "KM 2+1" berarti bathrooms = 2. Angka kedua adalah kamar pembantu dan tidak dihitung.
7. Jika ada harga jual dan harga sewa, harga jual masuk "price" dan harga sewa masuk "rent_price". transaction_type = "jual sewa".
8. SHM, SHGB/HGB, AJB, Girik langsung menjadi certificate_type.
9. Nama setelah "kecamatan"/"kec." adalah district; nama setelah "kota"/"kabupaten" adalah city.
10. Link http/https pertama adalah property_url, link kedua yang berbeda adalah agent_url.
11. Nomor telepon ditulis hanya angka (boleh diawali +). Jika ditandai "WA", isi juga contact_whatsapp.
12. JANGAN menebak. Nilai yang tidak tertulis di teks harus null.
{{if .History}}
Percakapan sebelumnya:
{{range .History}}- {{.}}
{{end}}{{end}}
Input pengguna:
{{.Input}}
`))

var searchTemplate = template.Must(template.New("search").Parse(
	`Anda adalah asisten pencarian properti. Ubah permintaan pengguna menjadi filter pencarian.

Balas HANYA dengan satu objek JSON:
{
  "property_type": "rumah | apartemen | tanah | ruko | villa | kost | gudang | kantor | lainnya",
  "location_keyword": "nama kota, kecamatan atau area",
  "min_price": 1000000000,
  "max_price": 5000000000,
  "min_bedrooms": 3,
  "min_land_area": 100,
  "must_have_facilities": ["kolam renang"]
}

Contoh:
Input: "Cari rumah di Jaksel minimal 3 kamar harga max 5M yang ada kolam renang"
Output: {"property_type": "rumah", "location_keyword": "Jakarta Selatan", "min_price": null, "max_price": 5000000000, "min_bedrooms": 3, "min_land_area": null, "must_have_facilities": ["kolam renang"]}

Aturan:
1. Harga berupa angka rupiah murni (5M -> 5000000000, 800jt -> 800000000).
2. Isi null untuk kriteria yang tidak disebutkan.
3. must_have_facilities adalah daftar string.

Input: {{printf "%q" .Input}}
`))

var askTemplate = template.Must(template.New("ask").Parse(
	`{{if .Context}}{{.Context}}

Pertanyaan: {{end}}{{.Input}}`))

type promptData struct {
	Input   string
	History []string
	Context string
}

// BuildExtractionPrompt renders the listing extraction prompt. History
// lines are earlier user turns, oldest first.
func BuildExtractionPrompt(input string, history []string) (string, error) {
	var cleaned []string
	for _, h := range history {
		if h = strings.TrimSpace(h); h != "" {
			cleaned = append(cleaned, h)
		}
	}
	return render(extractionTemplate, promptData{Input: input, History: cleaned})
}

// BuildSearchPrompt renders the search intent prompt.
func BuildSearchPrompt(query string) (string, error) {
	return render(searchTemplate, promptData{Input: query})
}

// BuildAskPrompt renders a free-form question, prefixed by the context
// block when one is given.
func BuildAskPrompt(question, contextText string) (string, error) {
	return render(askTemplate, promptData{
		Input:   strings.TrimSpace(question),
		Context: strings.TrimSpace(contextText),
	})
}

func render(t *template.Template, data promptData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
