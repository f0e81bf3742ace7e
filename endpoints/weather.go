package endpoints

import (
	"github.com/jcpope/homehub/proto"
	"github.com/jcpope/homehub/server"
	"github.com/jcpope/homehub/store"
)

func getWeather(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		cache, ok := st.Weather()
		if !ok {
			respondError(c, "Weather/GetWeather", msg.RequestID, "No weather data available yet")
			return
		}

		data := map[string]any{
			"weather":             cache.Weather,
			"sunTimes":            cache.Sun,
			"secondsUntilRefresh": st.SecondsUntilRefresh(),
		}
		if loc, ok := st.Location(); ok {
			data["location"] = map[string]any{
				"city":     loc.City,
				"lat":      loc.Latitude,
				"lon":      loc.Longitude,
				"region":   loc.Region,
				"country":  loc.Country,
				"timezone": loc.Timezone,
			}
		}

		respond(c, "Weather/GetWeather", msg.RequestID, data)
	}
}

func getForecast(st *store.Store) server.HandlerFunc {
	return func(c server.Conn, msg proto.Message) {
		forecast := []store.ForecastDay{}
		if cache, ok := st.Weather(); ok && cache.Forecast != nil {
			forecast = cache.Forecast
		}
		respond(c, "Weather/GetForecast", msg.RequestID, forecast)
	}
}
