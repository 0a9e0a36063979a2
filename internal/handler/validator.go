package handler

import "github.com/iliyamo/gym-server/internal/service"

// Validator plugs the service layer's validator into echo so handlers can
// call c.Validate on request DTOs and get field errors in the usual
// envelope.
type Validator struct{}

func (Validator) Validate(i any) error { return service.Validate(i) }
