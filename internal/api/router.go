package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/inventory"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(database *sqlx.DB, svc *inventory.Service, issuer *auth.Issuer, allowRegistration bool) *http.ServeMux {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: database, Issuer: issuer, AllowRegistration: allowRegistration}
	categoriesHandler := &CategoriesHandler{Service: svc}
	unitsHandler := &UnitsHandler{Service: svc}
	itemsHandler := &ItemsHandler{Service: svc}
	imagesHandler := &ImagesHandler{Service: svc}

	authMW := AuthMiddleware(issuer, database)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public: registration and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/me", authMW(http.HandlerFunc(authHandler.UpdateProfile)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Categories.
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(categoriesHandler.List)))
	mux.Handle("POST /api/categories", authMW(http.HandlerFunc(categoriesHandler.Create)))
	mux.Handle("GET /api/categories/{id}", authMW(http.HandlerFunc(categoriesHandler.Get)))
	mux.Handle("PUT /api/categories/{id}", authMW(http.HandlerFunc(categoriesHandler.Update)))
	mux.Handle("PATCH /api/categories/{id}", authMW(http.HandlerFunc(categoriesHandler.Patch)))
	mux.Handle("DELETE /api/categories/{id}", authMW(http.HandlerFunc(categoriesHandler.Delete)))

	// Units of measure.
	mux.Handle("GET /api/units", authMW(http.HandlerFunc(unitsHandler.List)))
	mux.Handle("POST /api/units", authMW(http.HandlerFunc(unitsHandler.Create)))
	mux.Handle("GET /api/units/{id}", authMW(http.HandlerFunc(unitsHandler.Get)))
	mux.Handle("PUT /api/units/{id}", authMW(http.HandlerFunc(unitsHandler.Update)))
	mux.Handle("PATCH /api/units/{id}", authMW(http.HandlerFunc(unitsHandler.Patch)))
	mux.Handle("DELETE /api/units/{id}", authMW(http.HandlerFunc(unitsHandler.Delete)))

	// Items.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/export", authMW(http.HandlerFunc(itemsHandler.Export)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("PATCH /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Patch)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))

	// Item images.
	mux.Handle("GET /api/images", authMW(http.HandlerFunc(imagesHandler.List)))
	mux.Handle("POST /api/images", authMW(http.HandlerFunc(imagesHandler.Create)))
	mux.Handle("GET /api/images/{id}", authMW(http.HandlerFunc(imagesHandler.Get)))
	mux.Handle("GET /api/images/{id}/content", authMW(http.HandlerFunc(imagesHandler.Content)))
	mux.Handle("PUT /api/images/{id}", authMW(http.HandlerFunc(imagesHandler.Update)))
	mux.Handle("PATCH /api/images/{id}", authMW(http.HandlerFunc(imagesHandler.Patch)))
	mux.Handle("DELETE /api/images/{id}", authMW(http.HandlerFunc(imagesHandler.Delete)))

	return mux
}
