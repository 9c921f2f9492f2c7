package normalize

import (
	"testing"

	"breakoutengine/internal/apperrors"
)

func candleEnvelope(rows string) []byte {
	return []byte(`{"code":"0","msg":"","data":` + rows + `}`)
}

func TestNormalizeCandlesticks_ValidRowsSortedAscending(t *testing.T) {
	raw := candleEnvelope(`[
		["2000","100","110","95","105","10","0","0","1"],
		["1000","100","108","96","104","8","0","0","1"]
	]`)
	bars, err := NormalizeCandlesticks(raw, "BTC-USD", "1m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].TimestampMs != 1000 || bars[1].TimestampMs != 2000 {
		t.Fatalf("expected ascending timestamp order, got %v", bars)
	}
	if !bars[0].IsClosed {
		t.Fatalf("expected confirm_flag=1 to mark the bar closed")
	}
}

func TestNormalizeCandlesticks_UnclosedWhenConfirmFlagIsZero(t *testing.T) {
	raw := candleEnvelope(`[["1000","100","108","96","104","8","0","0","0"]]`)
	bars, err := NormalizeCandlesticks(raw, "BTC-USD", "1m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bars[0].IsClosed {
		t.Fatalf("expected confirm_flag=0 to leave the bar open")
	}
}

func TestNormalizeCandlesticks_RejectsInvalidOHLC(t *testing.T) {
	// high below low is structurally inconsistent.
	raw := candleEnvelope(`[["1000","100","90","95","104","8","0","0","1"]]`)
	_, err := NormalizeCandlesticks(raw, "BTC-USD", "1m")
	if err == nil {
		t.Fatalf("expected an error for inconsistent OHLC")
	}
	var invalidErr *apperrors.InvalidPriceError
	if !castTo(err, &invalidErr) {
		t.Fatalf("expected an InvalidPriceError, got %T: %v", err, err)
	}
}

func TestNormalizeCandlesticks_PerFieldParseErrorDiagnostics(t *testing.T) {
	raw := candleEnvelope(`[["1000","not-a-number","110","95","105","10","0","0","1"]]`)
	_, err := NormalizeCandlesticks(raw, "BTC-USD", "1m")
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	var parseErr *apperrors.ParseError
	if !castTo(err, &parseErr) {
		t.Fatalf("expected a ParseError, got %T: %v", err, err)
	}
	if parseErr.Field != "open" {
		t.Fatalf("expected the diagnostic to name field %q, got %q", "open", parseErr.Field)
	}
	if parseErr.Raw != "not-a-number" {
		t.Fatalf("expected the diagnostic to carry the raw offending value, got %q", parseErr.Raw)
	}
	if parseErr.Index != 0 {
		t.Fatalf("expected the diagnostic to name row index 0, got %d", parseErr.Index)
	}
}

func TestNormalizeCandlesticks_ParseErrorNamesOffendingRowIndex(t *testing.T) {
	raw := candleEnvelope(`[
		["1000","100","110","95","105","10","0","0","1"],
		["2000","not-a-number","110","95","105","10","0","0","1"]
	]`)
	_, err := NormalizeCandlesticks(raw, "BTC-USD", "1m")
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	var parseErr *apperrors.ParseError
	if !castTo(err, &parseErr) {
		t.Fatalf("expected a ParseError, got %T: %v", err, err)
	}
	if parseErr.Index != 1 {
		t.Fatalf("expected the diagnostic to name the second row (index 1), got %d", parseErr.Index)
	}
}

func TestNormalizeCandlesticks_RejectsShortRows(t *testing.T) {
	raw := candleEnvelope(`[["1000","100","110","95","105"]]`)
	_, err := NormalizeCandlesticks(raw, "BTC-USD", "1m")
	if err == nil {
		t.Fatalf("expected an error for a short candle row")
	}
	var parseErr *apperrors.ParseError
	if !castTo(err, &parseErr) {
		t.Fatalf("expected a ParseError, got %T: %v", err, err)
	}
}

func TestNormalizeCandlesticks_RejectsMalformedEnvelope(t *testing.T) {
	_, err := NormalizeCandlesticks([]byte(`not json`), "BTC-USD", "1m")
	if err == nil {
		t.Fatalf("expected an error for malformed envelope JSON")
	}
}

// castTo is a small helper so these tests can assert the concrete
// apperrors type without importing errors.As boilerplate at every call
// site.
func castTo(err error, target interface{}) bool {
	switch t := target.(type) {
	case **apperrors.ParseError:
		e, ok := err.(*apperrors.ParseError)
		if ok {
			*t = e
		}
		return ok
	case **apperrors.InvalidPriceError:
		e, ok := err.(*apperrors.InvalidPriceError)
		if ok {
			*t = e
		}
		return ok
	}
	return false
}
