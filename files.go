package auth

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
)

//go:embed data/sql/migrations/*.sql
var migrationsFS embed.FS

//go:embed data/views/*.html
var viewsFS embed.FS

// GetMigrationsFS returns the migration files for this package, rooted
// at the migrations directory.
func GetMigrationsFS() fs.FS {
	return mustSub(migrationsFS, "data/sql/migrations")
}

// GetViewsFS returns the default sign-in templates, rooted at the views
// directory. Templates use django syntax.
func GetViewsFS() fs.FS {
	return mustSub(viewsFS, "data/views")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// NewViewEngine returns a django view engine serving the default templates
func NewViewEngine() *django.Engine {
	return django.NewFileSystem(http.FS(GetViewsFS()), ".html")
}
