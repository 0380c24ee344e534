package transform

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/treedoc/model"
)

// Step is one atomic document change. A step stores absolute positions
// into the document it was created for, so it generally only applies to
// that exact document; Map produces an adjusted step valid after other
// changes.
type Step interface {
	// Apply applies the step to a document, returning either the new
	// document or a failure. It never mutates its input.
	Apply(doc *model.Node) StepResult

	// GetMap returns the positional delta this step produces.
	GetMap() *StepMap

	// Invert builds a step that undoes this one. It needs the document
	// the step was applied to.
	Invert(doc *model.Node) (Step, error)

	// Map adjusts the step's positions through a mapping, returning nil
	// when the mapping deleted the step's target entirely.
	Map(mapping Mappable) Step

	// Merge combines this step with one applied directly after it,
	// when the two can be expressed as a single step.
	Merge(other Step) (Step, bool)

	// ToJSON returns the step's canonical JSON shape, including its
	// registered "stepType".
	ToJSON() map[string]any
}

// StepResult is the outcome of applying a step: either a new document or
// a failure message. Failures are ordinary values, not errors, so callers
// can drop an inapplicable step without unwinding.
type StepResult struct {
	// Doc is the transformed document, nil on failure.
	Doc *model.Node

	// Failed describes why the step did not apply; empty on success.
	Failed string
}

// OK wraps a successful result.
func OK(doc *model.Node) StepResult { return StepResult{Doc: doc} }

// Fail wraps a failure message.
func Fail(format string, args ...any) StepResult {
	return StepResult{Failed: fmt.Sprintf(format, args...)}
}

// FromReplace runs a model replace and converts its error, if any, into a
// step failure.
func FromReplace(doc *model.Node, from, to int, slice *model.Slice) StepResult {
	replaced, err := doc.Replace(from, to, slice)
	if err != nil {
		return Fail("%v", err)
	}
	return OK(replaced)
}

// StepDeserializer rebuilds a step of one registered kind from JSON.
type StepDeserializer func(schema *model.Schema, data gjson.Result) (Step, error)

var stepsByID = map[string]StepDeserializer{}

// RegisterStep registers a step kind under a JSON type identifier.
// Identifiers must be unique; packages defining custom steps register
// them at init time.
func RegisterStep(id string, deserializer StepDeserializer) {
	if _, dup := stepsByID[id]; dup {
		panic(fmt.Sprintf("transform: duplicate step JSON id %q", id))
	}
	stepsByID[id] = deserializer
}

// StepFromJSON rebuilds a step from its canonical JSON shape.
func StepFromJSON(schema *model.Schema, data []byte) (Step, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("malformed step JSON")
	}
	res := gjson.ParseBytes(data)
	id := res.Get("stepType").String()
	if id == "" {
		return nil, fmt.Errorf("step JSON without stepType")
	}
	deserializer, ok := stepsByID[id]
	if !ok {
		return nil, fmt.Errorf("no step type %q defined", id)
	}
	return deserializer(schema, res)
}

func init() {
	RegisterStep("replace", replaceStepFromJSON)
	RegisterStep("replaceAround", replaceAroundStepFromJSON)
	RegisterStep("addMark", addMarkStepFromJSON)
	RegisterStep("removeMark", removeMarkStepFromJSON)
	RegisterStep("addNodeMark", addNodeMarkStepFromJSON)
	RegisterStep("removeNodeMark", removeNodeMarkStepFromJSON)
	RegisterStep("attr", attrStepFromJSON)
	RegisterStep("docAttr", docAttrStepFromJSON)
}
