package collector

import (
	"fmt"
	"sort"
	"time"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// chartResponse is the Yahoo chart payload, also served by the RapidAPI get-chart endpoint.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

// bars converts the payload to chronological bars. Bars without a close are skipped,
// missing open/high/low fall back to the close and missing volume to zero.
func (c *chartResponse) bars() ([]model.OHLCV, error) {
	if c.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", c.Chart.Error.Code, c.Chart.Error.Description)
	}
	if len(c.Chart.Result) == 0 || len(c.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("chart: no data returned")
	}
	result := c.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart: no quote series")
	}
	quote := result.Indicators.Quote[0]

	orClose := func(v *float64, close float64) float64 {
		if v == nil {
			return close
		}
		return *v
	}

	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePtr := at(quote.Close, i)
		if closePtr == nil {
			continue // holidays and halted sessions
		}
		c := *closePtr
		var volume float64
		if v := at(quote.Volume, i); v != nil {
			volume = *v
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   orClose(at(quote.Open, i), c),
			High:   orClose(at(quote.High, i), c),
			Low:    orClose(at(quote.Low, i), c),
			Close:  c,
			Volume: volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
