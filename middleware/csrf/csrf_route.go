package csrf

import "github.com/goliatone/go-router"

// TokenHandler answers with the token issued by the middleware for the
// current request, for clients posting JSON instead of the HTML form.
// It must run behind New.
func TokenHandler(contextKey ...string) router.HandlerFunc {
	return func(ctx router.Context) error {
		token := Token(ctx, contextKey...)
		if token == "" {
			return ctx.JSON(router.StatusForbidden, map[string]string{
				"error": ErrTokenMissing.Error(),
			})
		}

		ctx.SetHeader("Cache-Control", "no-store, max-age=0")
		ctx.SetHeader("Pragma", "no-cache")

		return ctx.JSON(router.StatusOK, map[string]string{
			"csrfToken": token,
		})
	}
}
