package normalize

import (
	"encoding/json"
	"strconv"

	"breakoutengine/internal/apperrors"
	"breakoutengine/internal/model"
)

// rawBookPayload is the single element of the orderbook envelope's data
// array: {"asks": [[price,size,_,_], ...], "bids": [...], "ts": "..."}.
type rawBookPayload struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
	Ts   string     `json:"ts"`
}

// NormalizeOrderbook parses a raw order-book payload into a BookSnapshot,
// verifying monotonic level ordering, non-negative sizes and
// best-bid < best-ask.
func NormalizeOrderbook(raw []byte, instrumentID string) (model.BookSnapshot, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.BookSnapshot{}, &apperrors.ParseError{Index: -1, Message: "invalid envelope JSON: " + err.Error()}
	}

	var rows []rawBookPayload
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return model.BookSnapshot{}, &apperrors.ParseError{Index: -1, Field: "data", Message: "expected array of book snapshots: " + err.Error()}
	}
	if len(rows) == 0 {
		return model.BookSnapshot{}, &apperrors.ParseError{Index: -1, Field: "data", Message: "empty orderbook payload"}
	}
	row := rows[0]

	tsMs, err := strconv.ParseInt(row.Ts, 10, 64)
	if err != nil {
		return model.BookSnapshot{}, &apperrors.ParseError{Index: -1, Field: "ts", Raw: row.Ts, Message: "not an integer"}
	}

	bids, err := parseLevels(row.Bids, "bids")
	if err != nil {
		return model.BookSnapshot{}, err
	}
	asks, err := parseLevels(row.Asks, "asks")
	if err != nil {
		return model.BookSnapshot{}, err
	}

	if !model.BidsDescending(bids) {
		return model.BookSnapshot{}, &apperrors.InvalidPriceError{Message: "bids are not sorted descending by price"}
	}
	if !model.AsksAscending(asks) {
		return model.BookSnapshot{}, &apperrors.InvalidPriceError{Message: "asks are not sorted ascending by price"}
	}

	snap := model.BookSnapshot{
		InstrumentID: instrumentID,
		TimestampMs:  tsMs,
		Bids:         bids,
		Asks:         asks,
	}

	if bid, ok := snap.BestBid(); ok {
		if ask, ok := snap.BestAsk(); ok && bid.Price >= ask.Price {
			return model.BookSnapshot{}, &apperrors.InvalidPriceError{Message: "best bid is not below best ask"}
		}
	}

	return snap, nil
}

func parseLevels(raw [][]string, side string) ([]model.BookLevel, error) {
	levels := make([]model.BookLevel, 0, len(raw))
	for _, l := range raw {
		if len(l) < 2 {
			return nil, &apperrors.ParseError{Index: -1, Field: side, Message: "level must have at least 2 elements"}
		}
		price, err := strconv.ParseFloat(l[0], 64)
		if err != nil {
			return nil, &apperrors.ParseError{Index: -1, Field: side + ".price", Raw: l[0], Message: "not a number"}
		}
		size, err := strconv.ParseFloat(l[1], 64)
		if err != nil {
			return nil, &apperrors.ParseError{Index: -1, Field: side + ".size", Raw: l[1], Message: "not a number"}
		}
		if size < 0 {
			return nil, &apperrors.InvalidPriceError{Message: side + " size must be non-negative"}
		}
		levels = append(levels, model.BookLevel{Price: price, Size: size})
	}
	return levels, nil
}
