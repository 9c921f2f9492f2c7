package normalize

import (
	"encoding/json"
	"sort"
	"strconv"

	"breakoutengine/internal/apperrors"
	"breakoutengine/internal/model"
)

// NormalizeCandlesticks parses a raw candlestick payload
// ({code, msg, data: [[ts_ms, o, h, l, c, vol_base, vol_quote,
// vol_quote_alt, confirm_flag], ...]}) into Bars in ascending timestamp
// order. is_closed is set from confirm_flag == "1". Every returned bar
// passes OHLC-consistency and non-negative-volume validation.
func NormalizeCandlesticks(raw []byte, instrumentID, timeframe string) ([]model.Bar, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &apperrors.ParseError{Index: -1, Message: "invalid envelope JSON: " + err.Error()}
	}

	var rows [][]string
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, &apperrors.ParseError{Index: -1, Field: "data", Message: "expected array of candle rows: " + err.Error()}
	}

	bars := make([]model.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := parseCandleRow(row, i, instrumentID, timeframe)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].TimestampMs < bars[j].TimestampMs })
	return bars, nil
}

func parseCandleRow(row []string, index int, instrumentID, timeframe string) (model.Bar, error) {
	if len(row) < 9 {
		return model.Bar{}, &apperrors.ParseError{
			Index:   index,
			Field:   "data[]",
			Message: "candle row must have at least 9 elements",
		}
	}

	tsMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return model.Bar{}, &apperrors.ParseError{Index: index, Field: "ts_ms", Raw: row[0], Message: "not an integer"}
	}

	fields := map[string]string{"open": row[1], "high": row[2], "low": row[3], "close": row[4], "vol_base": row[5]}
	parsed := make(map[string]float64, len(fields))
	for name, raw := range fields {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Bar{}, &apperrors.ParseError{Index: index, Field: name, Raw: raw, Message: "not a number"}
		}
		parsed[name] = v
	}

	bar := model.Bar{
		InstrumentID: instrumentID,
		Timeframe:    timeframe,
		TimestampMs:  tsMs,
		Open:         parsed["open"],
		High:         parsed["high"],
		Low:          parsed["low"],
		Close:        parsed["close"],
		VolumeBase:   parsed["vol_base"],
		IsClosed:     row[8] == "1",
	}

	if !bar.Valid() {
		return model.Bar{}, &apperrors.InvalidPriceError{
			Message: "OHLC/volume inconsistent for candle at ts=" + row[0],
		}
	}

	return bar, nil
}
