package dto

import (
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"

	"github.com/orgnet-app/identity-service/internal/domain"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New()

	enLoc := en.New()
	uni := ut.New(enLoc, enLoc)
	trans, _ = uni.GetTranslator("en")
	_ = entrans.RegisterDefaultTranslations(validate, trans)
}

// SyncRequest is the optional body of POST /identity/v1/sync. When
// target_email is set the caller asks to re-anchor another account, which
// only a national coordinator may do.
type SyncRequest struct {
	TargetEmail string `json:"target_email" validate:"omitempty,email"`
}

func (r *SyncRequest) Validate() error {
	r.TargetEmail = strings.TrimSpace(r.TargetEmail)
	if err := validate.Struct(r); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return domain.ErrInvalidField("target_email", fe.Translate(trans))
		}
		return domain.ErrInvalidField("target_email", "invalid value")
	}
	return nil
}
