package webui

import (
	"crypto/subtle"
	"errors"
	"math/rand"

	"github.com/dave-gray101/v2keyauth"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/taskhive/taskhive/core/sse"
)

func (a *App) registerRoutes(webapp *fiber.App) {
	if len(a.apiKeys) > 0 {
		kaConfig, err := GetKeyAuthConfig(a.apiKeys)
		if err != nil || kaConfig == nil {
			panic(err)
		}
		webapp.Use(v2keyauth.New(*kaConfig))
	}

	webapp.Get("/sse/:user", func(c *fiber.Ctx) error {
		a.hub.Handle(c, c.Params("user"), sse.NewClient(randStringRunes(10)))
		return nil
	})

	webapp.Post("/api/tasks", a.SubmitTask())
	webapp.Get("/api/tasks/:id", a.GetTask())
	webapp.Get("/api/tasks", a.ListTasks())
	webapp.Get("/api/agents", a.GetAgents())
}

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randStringRunes(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rand.Intn(len(letterRunes))]
	}
	return string(b)
}

func GetKeyAuthConfig(apiKeys []string) (*v2keyauth.Config, error) {
	bearerLookup, err := v2keyauth.MultipleKeySourceLookup([]string{"header:Authorization"}, keyauth.ConfigDefault.AuthScheme)
	if err != nil {
		return nil, err
	}
	// The x-api-key header carries the bare key, without an auth scheme.
	plainLookup := v2keyauth.KeyFromHeader("x-api-key", "")

	customLookup := func(c *fiber.Ctx) (string, error) {
		if key, err := plainLookup(c); err == nil && key != "" {
			return key, nil
		}
		return bearerLookup(c)
	}

	return &v2keyauth.Config{
		CustomKeyLookup: customLookup,
		Next:            func(c *fiber.Ctx) bool { return false },
		Validator:       getApiKeyValidationFunction(apiKeys),
		ErrorHandler:    getApiKeyErrorHandler(apiKeys),
		AuthScheme:      "Bearer",
	}, nil
}

func getApiKeyErrorHandler(apiKeys []string) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		if errors.Is(err, v2keyauth.ErrMissingOrMalformedAPIKey) {
			if len(apiKeys) == 0 {
				return ctx.Next() // if no keys are set up, any error we get here is not an error.
			}
			ctx.Set("WWW-Authenticate", "Bearer")
			return ctx.SendStatus(401)
		}
		return err
	}
}

func getApiKeyValidationFunction(apiKeys []string) func(*fiber.Ctx, string) (bool, error) {
	return func(ctx *fiber.Ctx, apiKey string) (bool, error) {
		if len(apiKeys) == 0 {
			return true, nil // If no keys are setup, accept everything
		}
		for _, validKey := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
				return true, nil
			}
		}
		return false, v2keyauth.ErrMissingOrMalformedAPIKey
	}
}
