package validate

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hongminglow/portfolio-be/internal/models"
)

const (
	FieldOwnerID     = "ownerId"
	FieldPortfolioID = "portfolioId"
	FieldHoldingID   = "holdingId"
	FieldUserID      = "userId"
	FieldTicker      = "ticker"
	FieldName        = "name"
	FieldNotes       = "notes"
	FieldQty         = "qty"
	FieldUsername    = "username"
	FieldEmail       = "email"
	FieldPassword    = "password"

	minPasswordLength = 8
	// bcrypt ignores nothing past this; GenerateFromPassword rejects it.
	maxPasswordLength = 72
)

var (
	objectIDRex = regexp.MustCompile(`^[0-9a-f]{24}$`)
	tickerRex   = regexp.MustCompile(`^[0-9A-Z]{1,5}$`)
	usernameRex = regexp.MustCompile(`^[\w\s.]{3,32}$`)
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	mustRegister(val, "objectid", objectIDRex)
	mustRegister(val, "ticker", tickerRex)
	mustRegister(val, "username", usernameRex)
	return val
}

func mustRegister(val *validator.Validate, tag string, rex *regexp.Regexp) {
	err := val.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return rex.MatchString(fl.Field().String())
	})
	if err != nil {
		panic("validate: register " + tag + ": " + err.Error())
	}
}

func check(field, value, tag string) error {
	if value == "" {
		return Missing(field)
	}
	if err := v.Var(value, tag); err != nil {
		return Invalid(field)
	}
	return nil
}

// ObjectID checks a 24-character lowercase hex identifier.
func ObjectID(field, id string) error { return check(field, id, "objectid") }

func OwnerID(id string) error     { return ObjectID(FieldOwnerID, id) }
func PortfolioID(id string) error { return ObjectID(FieldPortfolioID, id) }
func HoldingID(id string) error   { return ObjectID(FieldHoldingID, id) }

// Ticker checks an already-normalized ticker symbol.
func Ticker(ticker string) error { return check(FieldTicker, ticker, "ticker") }

// Name checks a portfolio name: non-blank, at most 100 characters.
func Name(name string) error {
	if name == "" {
		return Missing(FieldName)
	}
	if strings.TrimSpace(name) == "" {
		return Invalid(FieldName)
	}
	if err := v.Var(name, "max=100"); err != nil {
		return Invalid(FieldName)
	}
	return nil
}

// Qty checks a holding quantity. Zero is accepted only when allowZero is set.
func Qty(q models.Quantity, allowZero bool) error {
	if q.IsNegative() || (q.IsZero() && !allowZero) {
		return Invalid(FieldQty)
	}
	return nil
}

func Username(username string) error {
	if err := check(FieldUsername, username, "username"); err != nil {
		return err
	}
	if strings.TrimSpace(username) == "" {
		return Invalid(FieldUsername)
	}
	return nil
}

func Email(email string) error { return check(FieldEmail, email, "email") }

func Password(password string) error {
	if password == "" {
		return Missing(FieldPassword)
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return Invalid(FieldPassword)
	}
	return nil
}

// TickerValue normalizes a raw request value (trim, uppercase) and checks it.
func TickerValue(raw any) (string, error) {
	if raw == nil {
		return "", Missing(FieldTicker)
	}
	s, ok := raw.(string)
	if !ok {
		return "", Invalid(FieldTicker)
	}
	ticker := strings.ToUpper(strings.TrimSpace(s))
	if ticker == "" {
		return "", Missing(FieldTicker)
	}
	return ticker, Ticker(ticker)
}

// NameValue trims a raw request value and checks it as a portfolio name.
func NameValue(raw any) (string, error) {
	if raw == nil {
		return "", Missing(FieldName)
	}
	s, ok := raw.(string)
	if !ok {
		return "", Invalid(FieldName)
	}
	return TrimName(s)
}

// TrimName trims a portfolio name and checks the result. A name made only
// of whitespace is invalid rather than missing.
func TrimName(s string) (string, error) {
	name := strings.TrimSpace(s)
	if s != "" && name == "" {
		return "", Invalid(FieldName)
	}
	return name, Name(name)
}

// NotesValue trims raw notes. Absent notes are the empty string.
func NotesValue(raw any) (string, error) {
	if raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", Invalid(FieldNotes)
	}
	return strings.TrimSpace(s), nil
}

// QtyValue coerces a JSON number or numeric string into a Quantity.
func QtyValue(raw any, allowZero bool) (models.Quantity, error) {
	var q models.Quantity
	switch val := raw.(type) {
	case nil:
		return q, Missing(FieldQty)
	case float64:
		q = models.Q(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return q, Missing(FieldQty)
		}
		parsed, err := models.ParseQuantity(s)
		if err != nil {
			return q, Invalid(FieldQty)
		}
		q = parsed
	default:
		return q, Invalid(FieldQty)
	}
	return q, Qty(q, allowZero)
}
