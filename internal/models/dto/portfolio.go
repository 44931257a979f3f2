package dto

// Portfolio request bodies keep their fields untyped so the validators can
// tell a missing field from one of the wrong type and name it in the error.

type CreatePortfolioRequest struct {
	Name  any `json:"name"`
	Notes any `json:"notes"`
}

type UpdatePortfolioRequest struct {
	Name  any `json:"name"`
	Notes any `json:"notes"`
}

type AddHoldingRequest struct {
	Ticker any `json:"ticker"`
	Qty    any `json:"qty"`
}

type UpdateHoldingRequest struct {
	Qty any `json:"qty"`
}
