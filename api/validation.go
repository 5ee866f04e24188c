package api

import (
	"fmt"

	"rpsarena/config"
	"rpsarena/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerValidators adds the request tags used by the handlers to gin's validator
func registerValidators(cfg *config.Config) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	if err := v.RegisterValidation("rpschoice", func(fl validator.FieldLevel) bool {
		_, err := models.ParseChoice(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("failed to register rpschoice: %w", err)
	}

	if err := v.RegisterValidation("staketier", func(fl validator.FieldLevel) bool {
		return cfg.IsStakeTier(fl.Field().Int())
	}); err != nil {
		return fmt.Errorf("failed to register staketier: %w", err)
	}
	return nil
}
