package group

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

var (
	groupRoleTag  = "grouprole"
	groupRoleText = "role must be one of: " + strings.Join(AllRoles, ", ")
)

// InitValidators registers the group validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(groupRoleTag, groupRoleValidation)
	core.RegisterCustomTranslation(validate, translator, groupRoleTag, groupRoleText)
}

// groupRoleValidation checks that the provided role is in AllRoles
func groupRoleValidation(fl validator.FieldLevel) bool {
	role, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return IsValidRole(role)
}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}
