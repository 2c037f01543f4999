package api

import (
	"net/http"

	actx "go.hackfix.me/strata/app/context"
	"go.hackfix.me/strata/auth"
	"go.hackfix.me/strata/crud"
	"go.hackfix.me/strata/db/models"
	"go.hackfix.me/strata/view"
)

// SetupHandlers registers the web API handlers on mux under prefix. Every
// endpoint is wrapped by layers.
func SetupHandlers(
	appCtx *actx.Context, mux *http.ServeMux, prefix string, layers view.Layer,
	opts ...view.HandlerOption,
) {
	store := models.NewWidgetStore(appCtx.DB)
	mutate := crud.FormMutator(store, models.BindWidget)
	serialize := crud.JSON[models.Widget]()
	pk := crud.PK("pk")

	widgets := view.IntoService(view.View405,
		layers,
		view.RequireMethods(http.MethodGet, http.MethodPost),
		view.Method(http.MethodGet, crud.List(store, crud.ListJSON[models.Widget](crud.MetaKey),
			crud.All(), crud.MetaCount(store, crud.MetaKey), crud.LimitOffset("limit", "offset"),
		), auth.HasPermissions("widgets.view")),
		view.Method(http.MethodPost, crud.Create(mutate, serialize),
			auth.HasPermissions("widgets.add")),
	)

	widget := view.IntoService(view.View405,
		layers,
		view.RequireMethods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete),
		view.Method(http.MethodGet, crud.Detail(store, serialize, pk),
			auth.HasPermissions("widgets.view")),
		view.Method(http.MethodPut, crud.Update(mutate, serialize, store, pk),
			auth.HasPermissions("widgets.change")),
		view.Method(http.MethodPatch, crud.Update(mutate, serialize, store, pk),
			auth.HasPermissions("widgets.change")),
		view.Method(http.MethodDelete, crud.Delete(crud.DeleteMutator(store), store, pk),
			auth.HasPermissions("widgets.delete")),
	)

	mux.Handle(prefix+"/widgets", view.Handler(widgets, opts...))
	mux.Handle(prefix+"/widgets/{pk}", view.Handler(widget, opts...))
}
