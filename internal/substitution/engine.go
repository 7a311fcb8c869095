package substitution

import (
	"fmt"
	"regexp"

	"github.com/deckhand/deckhand/internal/document"
	"github.com/deckhand/deckhand/internal/rendererr"
	"github.com/deckhand/deckhand/internal/value"
)

// SourceLookup resolves a substitution source document, observing
// replacement: if (schema,name) has been replaced, the replacement's
// data must be returned instead of the original's (§4.7).
type SourceLookup func(id document.ID) (value.Value, bool)

// Apply runs the substitution engine over docs: it builds the
// dependency graph, verifies it is acyclic, then walks documents in
// topological order applying each one's substitutions[] in declared
// order. data supplies each document's current (post-layering) data,
// and is updated in place as substitutions resolve; resolve supplies
// source document data (observing replacement).
//
// Returns a *rendererr.EngineError for either a cycle (fatal-revision)
// or a per-document substitution failure (fatal-document); callers
// should keep accumulating into the report, not panic, as a
// fatal-document error only removes that document's subtree.
func Apply(docs []*document.Document, data map[document.ID]value.Value, resolve SourceLookup) ([]*rendererr.EngineError, error) {
	g := BuildGraph(docs)
	order, err := TopoOrder(g)
	if err != nil {
		var cerr *CycleError
		if ok := asCycleError(err, &cerr); ok {
			return nil, rendererr.NewSubstitutionCycleError(cerr.Path)
		}
		return nil, err
	}

	byID := make(map[document.ID]*document.Document, len(docs))
	for _, d := range docs {
		byID[d.ID()] = d
	}

	var failures []*rendererr.EngineError
	for _, id := range order {
		d, ok := byID[id]
		if !ok {
			continue // pure source, not itself a substitution subject
		}
		for _, sub := range d.Metadata.Substitutions {
			if ferr := applyOne(d, sub, data, resolve); ferr != nil {
				failures = append(failures, ferr)
			}
		}
	}
	return failures, nil
}

func applyOne(d *document.Document, sub document.Substitution, data map[document.ID]value.Value, resolve SourceLookup) *rendererr.EngineError {
	dest := d.ID()
	srcID := document.ID{Schema: sub.Src.Schema, Name: sub.Src.Name}

	srcData, ok := resolve(srcID)
	if !ok {
		return rendererr.NewSubstitutionFailureError(dest, fmt.Sprintf("source %s not found", srcID))
	}

	srcPath, err := value.ParsePath(sub.Src.Path)
	if err != nil {
		return rendererr.NewSubstitutionFailureError(dest, err.Error())
	}
	extracted, ok := value.Get(srcData, srcPath)
	if !ok {
		return rendererr.NewSubstitutionFailureError(dest, fmt.Sprintf("path %q missing on source %s", sub.Src.Path, srcID))
	}

	destPath, err := value.ParsePath(sub.Dest.Path)
	if err != nil {
		return rendererr.NewSubstitutionFailureError(dest, err.Error())
	}

	current := data[dest]

	if sub.Dest.Pattern == nil {
		updated, err := value.Set(current, destPath, extracted)
		if err != nil {
			return rendererr.NewSubstitutionFailureError(dest, err.Error())
		}
		data[dest] = updated
		return nil
	}

	target, ok := value.Get(current, destPath)
	if !ok {
		return rendererr.NewSubstitutionFailureError(dest, fmt.Sprintf("pattern destination path %q missing", sub.Dest.Path))
	}
	targetStr, ok := target.(value.String)
	if !ok {
		return rendererr.NewSubstitutionFailureError(dest, fmt.Sprintf("pattern destination path %q is not a string", sub.Dest.Path))
	}

	re, err := regexp.Compile(*sub.Dest.Pattern)
	if err != nil {
		return rendererr.NewSubstitutionFailureError(dest, fmt.Sprintf("invalid pattern %q: %v", *sub.Dest.Pattern, err))
	}
	extractedStr := stringForm(extracted)
	if !re.MatchString(string(targetStr)) {
		return rendererr.NewMissingDocumentPatternError(dest, *sub.Dest.Pattern)
	}

	loc := re.FindStringIndex(string(targetStr))
	replaced := string(targetStr)[:loc[0]] + extractedStr + string(targetStr)[loc[1]:]
	updated, err := value.Set(current, destPath, value.String(replaced))
	if err != nil {
		return rendererr.NewSubstitutionFailureError(dest, err.Error())
	}
	data[dest] = updated
	return nil
}

// stringForm renders a substitution source value in its string form for
// pattern injection; only scalar sources are meaningful here.
func stringForm(v value.Value) string {
	switch t := v.(type) {
	case value.String:
		return string(t)
	case value.Int:
		return fmt.Sprintf("%d", int64(t))
	case value.Float:
		return fmt.Sprintf("%g", float64(t))
	case value.Bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", value.ToInterface(v))
	}
}

func asCycleError(err error, target **CycleError) bool {
	if ce, ok := err.(*CycleError); ok {
		*target = ce
		return true
	}
	return false
}
