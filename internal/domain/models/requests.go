package models

// Requests for the HTTP read API. Defined in domain for consistency and reuse.

type PredictRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Period string `query:"period" json:"period" default:"2y" validate:"oneof=1mo 3mo 6mo 1y 2y 5y 10y max"`
}

type RunsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}
