package core

const (
	minTemperatureF = 85.0
	maxTemperatureF = 110.0
)

// Validate rejects rows whose temperature is outside the plausible Fahrenheit
// band, which usually means the value was entered in Celsius. A missing
// temperature is not checked.
func Validate(row FeatureRow) error {
	temp, ok := ToFloat(row.Get(TemperatureColumn))
	if !ok {
		return nil
	}
	if temp < minTemperatureF || temp > maxTemperatureF {
		return &ValidationError{
			Code:     CodeInvalidTemperatureUnit,
			Detail:   "Temperature must be in Fahrenheit (typical 95-105). You likely entered Celsius by mistake.",
			Received: temp,
		}
	}
	return nil
}
