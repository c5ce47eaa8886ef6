// internal/forecast/models.go
package forecast

// ForecastRequest is the validated body of POST /forecast.
type ForecastRequest struct {
	Location string `json:"location"`
}

// Days holds one narrated forecast per day.
type Days struct {
	Day1 string `json:"day1"`
	Day2 string `json:"day2"`
	Day3 string `json:"day3"`
	Day4 string `json:"day4"`
	Day5 string `json:"day5"`
}

// ForecastResult is returned to callers unchanged from the parsed model output.
type ForecastResult struct {
	Result Days `json:"result"`
}
