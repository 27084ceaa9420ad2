package weather

// CodePenalty maps a WMO weather code to how unpleasant it makes an outdoor stop.
func CodePenalty(code int) float64 {
	switch {
	case code >= 95:
		return 0.9
	case code >= 80:
		return 0.6 // showers
	case code >= 61 && code <= 67:
		return 0.6
	case code >= 51 && code <= 57:
		return 0.3
	default:
		return 0
	}
}

// Describe returns a short English label for a WMO weather code.
func Describe(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown"
	}
}
