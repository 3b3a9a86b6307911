package intent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"seafood-agent/internal/quote"
)

// ErrMalformed marks a classifier response that is not the expected JSON.
var ErrMalformed = errors.New("intent: malformed classifier response")

type rawResult struct {
	Intent       string           `json:"intent"`
	Params       json.RawMessage  `json:"params"`
	Confidence   *float64         `json:"confidence"`
	Message      string           `json:"message"`
	Description  string           `json:"description"`
	Alternatives []rawAlternative `json:"alternatives"`
}

type rawAlternative struct {
	Intent      string          `json:"intent"`
	Params      json.RawMessage `json:"params"`
	Description string          `json:"description"`
}

type decodeFunc func(json.RawMessage) (Intent, error)

var registry = map[string]decodeFunc{
	CreateCustomer{}.Tag():      decodeAs[CreateCustomer],
	RenameCustomer{}.Tag():      decodeAs[RenameCustomer],
	SetCustomerPhone{}.Tag():    decodeAs[SetCustomerPhone],
	DeactivateCustomer{}.Tag():  decodeAs[DeactivateCustomer],
	ViewBalance{}.Tag():         decodeAs[ViewBalance],
	ViewMovements{}.Tag():       decodeAs[ViewMovements],
	RecordTransaction{}.Tag():   decodeAs[RecordTransaction],
	RecordPurchaseItems{}.Tag(): decodeAs[RecordPurchaseItems],
	MarkTransactionPaid{}.Tag(): decodeAs[MarkTransactionPaid],
	DeleteTransaction{}.Tag():   decodeAs[DeleteTransaction],
	ShareLink{}.Tag():           decodeAs[ShareLink],
	CreateQuote{}.Tag():         decodeAs[CreateQuote],
	ViewQuote{}.Tag():           decodeAs[ViewQuote],
	DeleteQuote{}.Tag():         decodeAs[DeleteQuote],
	MarkQuotePaid{}.Tag():       decodeAs[MarkQuotePaid],
	SendQuote{}.Tag():           decodeAs[SendQuote],
	SearchQuotes{}.Tag():        decodeAs[SearchQuotes],
	EditQuote{}.Tag():           decodeEditQuote,
	LinkQuote{}.Tag():           decodeAs[LinkQuote],
	ListProducts{}.Tag():        decodeAs[ListProducts],
	RepriceProduct{}.Tag():      decodeAs[RepriceProduct],
	SetAvailability{}.Tag():     decodeAs[SetAvailability],
	SetTheme{}.Tag():            decodeAs[SetTheme],
	ViewStats{}.Tag():           decodeAs[ViewStats],
	ExchangeRate{}.Tag():        decodeAs[ExchangeRate],
	Help{}.Tag():                decodeAs[Help],
	Chat{}.Tag():                decodeAs[Chat],
	ClarificationReply{}.Tag():  decodeAs[ClarificationReply],
}

func decodeAs[T Intent](raw json.RawMessage) (Intent, error) {
	var v T
	if isEmptyJSON(raw) {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeIntent builds the tagged intent for tag from its params payload.
func DecodeIntent(tag string, params json.RawMessage) (Intent, error) {
	fn, ok := registry[strings.TrimSpace(tag)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrMalformed, tag)
	}
	i, err := fn(params)
	if err != nil {
		return nil, fmt.Errorf("%w: params of %s: %v", ErrMalformed, tag, err)
	}
	return i, nil
}

// DecodeResult parses one classifier response.
func DecodeResult(raw string) (Result, error) {
	var rr rawResult
	if err := decodeStrict(raw, &rr); err != nil {
		return Result{}, err
	}
	if rr.Confidence == nil {
		return Result{}, fmt.Errorf("%w: missing confidence", ErrMalformed)
	}
	conf := *rr.Confidence
	if conf < 0 || conf > 1 {
		return Result{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformed, conf)
	}
	primary, err := DecodeIntent(rr.Intent, rr.Params)
	if err != nil {
		return Result{}, err
	}
	out := Result{
		Intent:      primary,
		Confidence:  conf,
		Message:     strings.TrimSpace(rr.Message),
		Description: strings.TrimSpace(rr.Description),
	}
	for _, ra := range rr.Alternatives {
		alt, err := DecodeIntent(ra.Intent, ra.Params)
		if err != nil {
			// A broken alternative only shrinks the menu.
			continue
		}
		out.Alternatives = append(out.Alternatives, Alternative{Intent: alt, Description: strings.TrimSpace(ra.Description)})
	}
	return out, nil
}

type rawEditQuote struct {
	QuoteID *uint       `json:"quote_id"`
	Ops     []rawEditOp `json:"ops"`
}

type rawEditOp struct {
	Op             string           `json:"op"`
	Item           string           `json:"item"`
	Product        string           `json:"product"`
	Quantity       *decimal.Decimal `json:"quantity"`
	Unit           string           `json:"unit"`
	Price          *decimal.Decimal `json:"price"`
	SecondaryPrice *decimal.Decimal `json:"secondary_price"`
	Amount         *decimal.Decimal `json:"amount"`
	Name           string           `json:"name"`
	Date           string           `json:"date"`
	Hide           *bool            `json:"hide"`
}

func decodeEditQuote(raw json.RawMessage) (Intent, error) {
	var re rawEditQuote
	if !isEmptyJSON(raw) {
		if err := json.Unmarshal(raw, &re); err != nil {
			return nil, err
		}
	}
	if len(re.Ops) == 0 {
		return nil, errors.New("edit_quote without ops")
	}
	out := EditQuote{QuoteID: re.QuoteID, Ops: make([]quote.EditOp, 0, len(re.Ops))}
	for _, o := range re.Ops {
		op, err := o.toEditOp()
		if err != nil {
			return nil, err
		}
		out.Ops = append(out.Ops, op)
	}
	return out, nil
}

func (o rawEditOp) toEditOp() (quote.EditOp, error) {
	qty := decimal.Zero
	if o.Quantity != nil {
		qty = *o.Quantity
	}
	switch o.Op {
	case "set_item_price":
		return quote.SetItemPrice{Item: o.Item, Primary: o.Price, Secondary: o.SecondaryPrice}, nil
	case "set_item_quantity":
		if o.Quantity == nil {
			return nil, errors.New("set_item_quantity without quantity")
		}
		return quote.SetItemQuantity{Item: o.Item, Quantity: qty}, nil
	case "decrement_quantity":
		return quote.DecrementQuantity{Item: o.Item, By: qty}, nil
	case "remove_item":
		return quote.RemoveItem{Item: o.Item}, nil
	case "add_item":
		return quote.AddItem{Name: o.Item, Quantity: qty, Unit: o.Unit, Price: o.Price, SecondaryPrice: o.SecondaryPrice}, nil
	case "substitute_item":
		return quote.SubstituteItem{Item: o.Item, Product: o.Product}, nil
	case "set_delivery":
		amount := decimal.Zero
		if o.Amount != nil {
			amount = *o.Amount
		}
		return quote.SetDeliveryCharge{Amount: amount}, nil
	case "set_customer_name":
		return quote.SetCustomerName{Name: o.Name}, nil
	case "set_date":
		d, err := ParseDate(o.Date)
		if err != nil {
			return nil, err
		}
		return quote.SetDate{Date: d}, nil
	case "toggle_rate":
		return quote.ToggleRateVisibility{Hide: o.Hide}, nil
	}
	return nil, fmt.Errorf("unknown edit op %q", o.Op)
}

type rawExtraction struct {
	Items []struct {
		Product        string           `json:"product"`
		Quantity       decimal.Decimal  `json:"quantity"`
		Unit           string           `json:"unit"`
		Price          *decimal.Decimal `json:"price"`
		SecondaryPrice *decimal.Decimal `json:"secondary_price"`
	} `json:"items"`
	Unmatched []struct {
		Name     string           `json:"name"`
		Quantity decimal.Decimal  `json:"quantity"`
		Unit     string           `json:"unit"`
		Price    *decimal.Decimal `json:"price"`
	} `json:"unmatched"`
	Delivery     *decimal.Decimal `json:"delivery"`
	CustomerName string           `json:"customer_name"`
	Date         string           `json:"date"`
}

// DecodeExtraction parses a line-item extraction response.
func DecodeExtraction(raw string) (quote.Extraction, error) {
	var re rawExtraction
	if err := decodeStrict(raw, &re); err != nil {
		return quote.Extraction{}, err
	}
	out := quote.Extraction{Delivery: re.Delivery, CustomerName: strings.TrimSpace(re.CustomerName)}
	for _, it := range re.Items {
		out.Items = append(out.Items, quote.ExtractedItem{
			Product:        it.Product,
			Quantity:       it.Quantity,
			Unit:           it.Unit,
			Price:          it.Price,
			SecondaryPrice: it.SecondaryPrice,
		})
	}
	for _, it := range re.Unmatched {
		out.Unmatched = append(out.Unmatched, quote.UnmatchedItem{Name: it.Name, Quantity: it.Quantity, Unit: it.Unit, Price: it.Price})
	}
	if d, err := ParseDate(re.Date); err == nil && !d.IsZero() {
		out.Date = &d
	}
	return out, nil
}

// decodeStrict decodes exactly one JSON value, tolerating a markdown code
// fence around it.
func decodeStrict(raw string, v any) error {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	dec := json.NewDecoder(bytes.NewBufferString(strings.TrimSpace(s)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: multiple JSON values", ErrMalformed)
	}
	return nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
