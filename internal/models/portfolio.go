package models

// Portfolio is the aggregate root owning a set of embedded holdings.
type Portfolio struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	Holdings  []Holding `json:"holdings"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

// Holding is a position in a single ticker, embedded in its portfolio.
type Holding struct {
	ID        string   `json:"id"`
	Ticker    string   `json:"ticker"`
	Qty       Quantity `json:"qty"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

// PortfolioChanges lists the user-editable portfolio fields.
// A nil field is left untouched.
type PortfolioChanges struct {
	Name  *string
	Notes *string
}

// HoldingByTicker returns the holding for ticker, if present.
func (p Portfolio) HoldingByTicker(ticker string) (Holding, bool) {
	for _, h := range p.Holdings {
		if h.Ticker == ticker {
			return h, true
		}
	}
	return Holding{}, false
}

// HoldingByID returns the holding with the given id, if present.
func (p Portfolio) HoldingByID(id string) (Holding, bool) {
	for _, h := range p.Holdings {
		if h.ID == id {
			return h, true
		}
	}
	return Holding{}, false
}
