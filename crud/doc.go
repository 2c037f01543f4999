// Package crud builds view services that list, show, create, update and
// delete objects of a Store.
//
// Services are assembled from small functions: filterers narrow down the
// Query that selects objects, serializers render them, and mutators change
// them. For example:
//
//	list := crud.List(store, crud.ListJSON[Widget](crud.MetaKey),
//		crud.All(), crud.MetaCount(store, crud.MetaKey), crud.LimitOffset("limit", "offset"))
//	detail := crud.Detail(store, crud.JSON[Widget](), crud.PK("pk"))
package crud
