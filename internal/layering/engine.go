package layering

import (
	"fmt"
	"sort"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/rendererr"
	"github.com/deckhand/deckhand/internal/value"
)

// Apply runs the layering engine over forest/docs (§4.5): root-first,
// breadth-first within a layer, each non-root document starting from a
// deep copy of its parent's already-layered data and applying its own
// actions in declared order. Returns each document's intermediate data
// keyed by pointer (see Forest), plus any fatal-document errors (that
// document and its subtree are dropped from the returned map, per §7
// propagation policy — Apply still computes as much as it can elsewhere
// so the report keeps full context).
func Apply(forest Forest, docs []*document.Document) (map[*document.Document]value.Value, []*rendererr.EngineError) {
	children := Children(forest, docs)
	roots := Roots(forest, docs)

	data := make(map[*document.Document]value.Value, len(docs))
	failed := make(map[*document.Document]bool)
	var errs []*rendererr.EngineError

	queue := append([]*document.Document{}, roots...)
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]

		parent, hasParent := forest[d]
		switch {
		case !hasParent:
			data[d] = value.Clone(d.Data)
		case failed[parent]:
			failed[d] = true
			propagateFailure(d, children, failed)
			continue
		default:
			result, err := applyActions(d, data[parent])
			if err != nil {
				errs = append(errs, err)
				failed[d] = true
				propagateFailure(d, children, failed)
				continue
			}
			data[d] = result
		}

		queue = append(queue, children[d]...)
	}

	for d := range failed {
		delete(data, d)
	}

	return data, errs
}

func propagateFailure(d *document.Document, children map[*document.Document][]*document.Document, failed map[*document.Document]bool) {
	for _, c := range children[d] {
		failed[c] = true
		propagateFailure(c, children, failed)
	}
}

func applyActions(d *document.Document, parentData value.Value) (value.Value, *rendererr.EngineError) {
	result := value.Clone(parentData)
	for _, action := range d.Metadata.LayeringDefinition.Actions {
		path, err := value.ParsePath(action.Path)
		if err != nil {
			return nil, &rendererr.EngineError{
				Kind: rendererr.MissingDocumentKey, Document: d.ID(),
				Message: err.Error(), Sev: rendererr.SeverityFatalDocument,
			}
		}

		switch action.Method {
		case document.ActionMerge:
			childVal, ok := value.Get(d.Data, path)
			if !ok {
				continue // nothing of D's own to merge at this path
			}
			parentVal, _ := value.Get(result, path)
			merged := value.DeepMerge(parentVal, childVal)
			result, err = value.Set(result, path, merged)
			if err != nil {
				return nil, &rendererr.EngineError{
					Kind: rendererr.MissingDocumentKey, Document: d.ID(),
					Message: err.Error(), Sev: rendererr.SeverityFatalDocument,
				}
			}
		case document.ActionReplace:
			childVal, ok := value.Get(d.Data, path)
			if !ok {
				return nil, &rendererr.EngineError{
					Kind: rendererr.MissingDocumentKey, Document: d.ID(),
					Message: fmt.Sprintf("replace: path %q missing on child data", action.Path),
					Sev:     rendererr.SeverityFatalDocument,
				}
			}
			if _, ok := value.Get(result, path); !ok {
				return nil, &rendererr.EngineError{
					Kind: rendererr.MissingDocumentKey, Document: d.ID(),
					Message: fmt.Sprintf("replace: path %q missing on parent data", action.Path),
					Sev:     rendererr.SeverityFatalDocument,
				}
			}
			result, err = value.Set(result, path, childVal)
			if err != nil {
				return nil, &rendererr.EngineError{
					Kind: rendererr.MissingDocumentKey, Document: d.ID(),
					Message: err.Error(), Sev: rendererr.SeverityFatalDocument,
				}
			}
		case document.ActionDelete:
			updated, ok := value.Delete(result, path)
			if !ok {
				return nil, &rendererr.EngineError{
					Kind: rendererr.MissingDocumentKey, Document: d.ID(),
					Message: fmt.Sprintf("delete: path %q missing", action.Path),
					Sev:     rendererr.SeverityFatalDocument,
				}
			}
			result = updated
		default:
			return nil, &rendererr.EngineError{
				Kind: rendererr.InvalidDocumentFormat, Document: d.ID(),
				Message: fmt.Sprintf("unsupported layering action method %q", action.Method),
				Sev:     rendererr.SeverityFatalDocument,
			}
		}
	}
	return result, nil
}

func sortDocs(docs []*document.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID().Less(docs[j].ID()) })
}
