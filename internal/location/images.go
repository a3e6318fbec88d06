package location

import "strings"

// cityImages maps well-known cities to curated imagery; everything else gets
// the generic travel shot.
var cityImages = map[string]string{
	"tokyo":       "https://images.unsplash.com/photo-1542051841857-5f90071e7989",
	"cluj-napoca": "https://images.unsplash.com/photo-1570168007204-dfb528c6958f",
}

const defaultCityImage = "https://images.unsplash.com/photo-1554878516-1691fd114521"

// CityImage returns the display image URL for a city name.
func CityImage(city string) string {
	if url, ok := cityImages[strings.ToLower(strings.TrimSpace(city))]; ok {
		return url
	}
	return defaultCityImage
}
