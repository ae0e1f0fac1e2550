package version

import (
	"context"

	"github.com/nainya/docversions/pkg/app"
	"github.com/nainya/docversions/pkg/document"
)

// GetVersion returns the history of one document of a service, or nil when it
// has none. serviceOrName is a *app.Service or a registered service name;
// documentOrID is a document carrying its id or the raw id.
func GetVersion(ctx context.Context, a *app.App, serviceOrName any, documentOrID any) (*History, error) {
	if a == nil {
		return nil, &LookupError{Message: "to be bound to an application"}
	}

	var svc *app.Service
	switch s := serviceOrName.(type) {
	case *app.Service:
		svc = s
	case string:
		svc = a.Service(s)
	}
	if svc == nil {
		return nil, &LookupError{Message: "a valid service or service name"}
	}
	name := a.NameOf(svc)
	if name == "" {
		return nil, &LookupError{Message: "a service registered on the application"}
	}

	var id any
	switch d := documentOrID.(type) {
	case document.Document:
		id = d[svc.IDField()]
	case map[string]any:
		id = d[svc.IDField()]
	default:
		id = d
	}
	if id == nil {
		return nil, &LookupError{Message: "a document or an id"}
	}

	vs := GetVersionService(a)
	if vs == nil {
		return nil, ErrNotInitialized
	}
	cast, err := vs.CastID(id)
	if err != nil {
		return nil, app.BadRequest(err)
	}

	vs.metrics.RecordLookup()
	return vs.Get(ctx, Key{Document: cast, Service: name})
}
