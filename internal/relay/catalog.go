package relay

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// FieldInfo describes one selectable weather field.
type FieldInfo struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// APIInfo describes one relay endpoint.
type APIInfo struct {
	Name        string                 `json:"name"`
	Method      string                 `json:"method"`
	Path        string                 `json:"path"`
	Description string                 `json:"description"`
	Example     map[string]interface{} `json:"example"`
}

// weatherFieldCatalog lists the dotted paths available in a current-weather
// response, grouped by category.
var weatherFieldCatalog = map[string][]FieldInfo{
	"basic": {
		{Path: "name", Description: "City name"},
		{Path: "weather[0].main", Description: "Weather condition group"},
		{Path: "weather[0].description", Description: "Weather condition description"},
		{Path: "weather[0].icon", Description: "Weather icon id"},
	},
	"temperature": {
		{Path: "main.temp", Description: "Temperature"},
		{Path: "main.feels_like", Description: "Perceived temperature"},
		{Path: "main.temp_min", Description: "Minimum temperature"},
		{Path: "main.temp_max", Description: "Maximum temperature"},
	},
	"atmosphere": {
		{Path: "main.pressure", Description: "Atmospheric pressure (hPa)"},
		{Path: "main.humidity", Description: "Humidity (%)"},
		{Path: "main.sea_level", Description: "Pressure at sea level (hPa)"},
		{Path: "main.grnd_level", Description: "Pressure at ground level (hPa)"},
	},
	"wind": {
		{Path: "wind.speed", Description: "Wind speed"},
		{Path: "wind.deg", Description: "Wind direction (degrees)"},
		{Path: "wind.gust", Description: "Wind gust"},
	},
	"clouds": {
		{Path: "clouds.all", Description: "Cloudiness (%)"},
	},
	"location": {
		{Path: "coord.lat", Description: "Latitude"},
		{Path: "coord.lon", Description: "Longitude"},
		{Path: "sys.country", Description: "Country code"},
		{Path: "timezone", Description: "Shift in seconds from UTC"},
	},
	"sun": {
		{Path: "sys.sunrise", Description: "Sunrise time (unix, UTC)"},
		{Path: "sys.sunset", Description: "Sunset time (unix, UTC)"},
	},
	"visibility": {
		{Path: "visibility", Description: "Visibility (meters)"},
	},
}

var apiDirectory = []APIInfo{
	{
		Name:        "Universal proxy",
		Method:      http.MethodPost,
		Path:        PathProxy,
		Description: "Forward a request to any HTTP endpoint and optionally select fields from the response",
		Example: map[string]interface{}{
			"url":    "https://jsonplaceholder.typicode.com/users/1",
			"method": "GET",
			"fields": []string{"name", "address.city", "company.name"},
		},
	},
	{
		Name:        "Weather",
		Method:      http.MethodPost,
		Path:        PathWeather,
		Description: "Current weather for a city, optionally reduced to selected fields",
		Example: map[string]interface{}{
			"city":   "London",
			"fields": []string{"name", "main.temp", "weather[0].description"},
		},
	},
}

func (h *Handler) weatherFields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"categories": weatherFieldCatalog,
	})
}

func (h *Handler) availableAPIs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"apis":    apiDirectory,
	})
}
