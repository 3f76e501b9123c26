package models

import "sort"

// Province is a supported province code with the centroid used for weather
// lookups.
type Province struct {
	Code string  `json:"code"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

var provinces = map[string]Province{
	"an-giang":    {Code: "an-giang", Name: "An Giang", Lat: 10.5216, Lon: 105.1259},
	"bac-lieu":    {Code: "bac-lieu", Name: "Bac Lieu", Lat: 9.2940, Lon: 105.7216},
	"ben-tre":     {Code: "ben-tre", Name: "Ben Tre", Lat: 10.2434, Lon: 106.3756},
	"ca-mau":      {Code: "ca-mau", Name: "Ca Mau", Lat: 9.1527, Lon: 105.1961},
	"can-tho":     {Code: "can-tho", Name: "Can Tho", Lat: 10.0452, Lon: 105.7469},
	"dak-lak":     {Code: "dak-lak", Name: "Dak Lak", Lat: 12.7100, Lon: 108.2378},
	"dong-thap":   {Code: "dong-thap", Name: "Dong Thap", Lat: 10.4938, Lon: 105.6882},
	"gia-lai":     {Code: "gia-lai", Name: "Gia Lai", Lat: 13.8079, Lon: 108.1094},
	"ha-noi":      {Code: "ha-noi", Name: "Ha Noi", Lat: 21.0278, Lon: 105.8342},
	"hau-giang":   {Code: "hau-giang", Name: "Hau Giang", Lat: 9.7579, Lon: 105.6413},
	"ho-chi-minh": {Code: "ho-chi-minh", Name: "Ho Chi Minh", Lat: 10.8231, Lon: 106.6297},
	"kien-giang":  {Code: "kien-giang", Name: "Kien Giang", Lat: 9.8250, Lon: 105.1259},
	"lam-dong":    {Code: "lam-dong", Name: "Lam Dong", Lat: 11.5753, Lon: 108.1429},
	"long-an":     {Code: "long-an", Name: "Long An", Lat: 10.6956, Lon: 106.2431},
	"nam-dinh":    {Code: "nam-dinh", Name: "Nam Dinh", Lat: 20.4388, Lon: 106.1621},
	"nghe-an":     {Code: "nghe-an", Name: "Nghe An", Lat: 19.2342, Lon: 104.9200},
	"soc-trang":   {Code: "soc-trang", Name: "Soc Trang", Lat: 9.6025, Lon: 105.9739},
	"thai-binh":   {Code: "thai-binh", Name: "Thai Binh", Lat: 20.4463, Lon: 106.3366},
	"thanh-hoa":   {Code: "thanh-hoa", Name: "Thanh Hoa", Lat: 19.8067, Lon: 105.7852},
	"tien-giang":  {Code: "tien-giang", Name: "Tien Giang", Lat: 10.4493, Lon: 106.3421},
	"tra-vinh":    {Code: "tra-vinh", Name: "Tra Vinh", Lat: 9.8127, Lon: 106.2993},
	"vinh-long":   {Code: "vinh-long", Name: "Vinh Long", Lat: 10.2397, Lon: 105.9572},
}

func LookupProvince(code string) (Province, bool) {
	p, ok := provinces[code]
	return p, ok
}

// ProvinceCodes returns every supported code in sorted order.
func ProvinceCodes() []string {
	codes := make([]string, 0, len(provinces))
	for code := range provinces {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
