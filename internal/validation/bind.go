package validation

import (
	"log"

	"github.com/gofiber/fiber/v2"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate parses the JSON body into out and validates it. When it
// reports handled, the 400 reply has been written and the handler should
// return err as is.
func BindAndValidate(c *fiber.Ctx, out interface{}, v *validatorv10.Validate) (handled bool, err error) {
	if err := c.BodyParser(out); err != nil {
		log.Printf("Invalid request body on %s: %v", c.Path(), err)
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Corpo da requisição inválido.",
		})
	}

	if err := v.Struct(out); err != nil {
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Dados inválidos.",
			"fields": Messages(err),
		})
	}
	return false, nil
}
