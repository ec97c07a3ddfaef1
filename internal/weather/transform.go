package weather

import (
	"strconv"
	"strings"
	"time"
)

// Transform maps a provider record and an optional AQI into an Observation.
// It returns a *ValidationError when a required measurement is missing; the
// partially built observation is returned alongside so callers can log it.
func Transform(raw RawObservation, aqi *int) (Observation, error) {
	ts := time.Now().UTC()
	if raw.Dt != 0 {
		ts = time.Unix(raw.Dt, 0).UTC()
	}

	state := raw.State
	if state == "" {
		state = DefaultState
	}

	obs := Observation{
		City:        raw.Name,
		State:       state,
		Timestamp:   ts,
		Temperature: raw.Main.Temp,
		Humidity:    raw.Main.Humidity,
		Pressure:    raw.Main.Pressure,
		WindSpeed:   raw.Wind.Speed,
		Condition:   ConditionUnknown,
		AirQuality:  aqi,
	}
	if len(raw.Weather) > 0 {
		obs.Condition = ConditionFromOpenWeather(raw.Weather[0].Main)
		if d := raw.Weather[0].Description; d != "" {
			obs.Description = &d
		}
	}

	if err := Validate(obs); err != nil {
		return obs, err
	}
	return obs, nil
}

// IsValid reports whether temperature, humidity and pressure are all present.
func IsValid(obs Observation) bool {
	return obs.Temperature != nil && obs.Humidity != nil && obs.Pressure != nil
}

// Validate is IsValid with the missing fields spelled out.
func Validate(obs Observation) error {
	var missing []string
	if obs.Temperature == nil {
		missing = append(missing, "temperature")
	}
	if obs.Humidity == nil {
		missing = append(missing, "humidity")
	}
	if obs.Pressure == nil {
		missing = append(missing, "pressure")
	}
	if len(missing) > 0 {
		return &ValidationError{City: obs.City, Missing: missing}
	}
	return nil
}

// ConditionFromOpenWeather maps the provider's weather group to a Condition.
func ConditionFromOpenWeather(main string) Condition {
	switch main {
	case "Clear":
		return ConditionClear
	case "Clouds":
		return ConditionCloudy
	case "Rain", "Drizzle":
		return ConditionRain
	case "Snow":
		return ConditionSnow
	case "Thunderstorm":
		return ConditionStorm
	case "Mist", "Fog", "Haze", "Smoke":
		return ConditionMist
	default:
		return ConditionUnknown
	}
}

// DescribeObservation renders the sentence that gets embedded for a location.
func DescribeObservation(location string, obs Observation) string {
	desc := string(obs.Condition)
	if obs.Description != nil {
		desc = *obs.Description
	}

	var b strings.Builder
	b.WriteString("Weather in ")
	b.WriteString(location)
	b.WriteString(": ")
	b.WriteString(desc)
	b.WriteString(".")
	writeMeasure(&b, "Temperature", obs.Temperature, "°C")
	writeMeasure(&b, "Humidity", obs.Humidity, "%")
	writeMeasure(&b, "Pressure", obs.Pressure, " hPa")
	writeMeasure(&b, "Wind Speed", obs.WindSpeed, " m/s")
	return b.String()
}

func writeMeasure(b *strings.Builder, label string, v *float64, unit string) {
	if v == nil {
		return
	}
	b.WriteString(" ")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(strconv.FormatFloat(*v, 'f', -1, 64))
	b.WriteString(unit)
	b.WriteString(".")
}
