package aggregation

import (
	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// ProjectStage reshapes documents. 1/true keeps a field, 0/false drops it,
// anything else is an expression computing the field. _id is kept unless
// explicitly excluded. Exclusion of fields other than _id cannot be mixed
// with inclusion or computed fields.
type ProjectStage struct {
	include  []string
	exclude  []string
	computed map[string]interface{}
	keepID   bool
}

func newProjectStage(spec interface{}) (*ProjectStage, error) {
	projection, ok := asDocument(spec)
	if !ok || len(projection) == 0 {
		return nil, domain.Configurationf("$project requires a projection object")
	}

	stage := &ProjectStage{computed: make(map[string]interface{}), keepID: true}
	for _, field := range sortedKeys(projection) {
		value := projection[field]
		if flag, isFlag := projectionFlag(value); isFlag {
			switch {
			case field == domain.IDField:
				stage.keepID = flag
			case flag:
				stage.include = append(stage.include, field)
			default:
				stage.exclude = append(stage.exclude, field)
			}
			continue
		}
		if err := validateExpression(value); err != nil {
			return nil, err
		}
		stage.computed[field] = value
	}

	if len(stage.exclude) > 0 && (len(stage.include) > 0 || len(stage.computed) > 0) {
		return nil, domain.Configurationf("$project cannot mix exclusion with inclusion")
	}
	return stage, nil
}

// projectionFlag recognises 1/0 and true/false
func projectionFlag(v interface{}) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if n, ok := domain.ToFloat64(v); ok && (n == 0 || n == 1) {
		return n == 1, true
	}
	return false, false
}

func (s *ProjectStage) Execute(docs []domain.Document) ([]domain.Document, error) {
	result := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		result = append(result, s.project(doc))
	}
	return result, nil
}

func (s *ProjectStage) project(doc domain.Document) domain.Document {
	if len(s.exclude) > 0 || (len(s.include) == 0 && len(s.computed) == 0) {
		out := doc.Clone()
		for _, field := range s.exclude {
			out.Delete(field)
		}
		if !s.keepID {
			delete(out, domain.IDField)
		}
		return out
	}

	out := make(domain.Document, len(s.include)+len(s.computed)+1)
	if id, ok := doc[domain.IDField]; ok && s.keepID {
		out[domain.IDField] = id
	}
	for _, field := range s.include {
		if value, ok := doc.Get(field); ok {
			out.Set(field, domain.CloneValue(value))
		}
	}
	for field, expr := range s.computed {
		out.Set(field, evaluate(expr, doc))
	}
	return out
}

func (s *ProjectStage) Type() string {
	return "$project"
}
