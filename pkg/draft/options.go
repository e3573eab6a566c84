package draft

import "github.com/goliatone/go-formsync/pkg/model"

// DefaultOptionLabel is the label given to options added from the editor.
const DefaultOptionLabel = "Option"

// NewOption returns an option with a fresh id used as its value.
func NewOption() model.Option {
	id := defaultIDFunc()
	return model.Option{ID: id, Label: DefaultOptionLabel, Value: id}
}

// WithOption returns a copy of options with opt appended.
func WithOption(options []model.Option, opt model.Option) []model.Option {
	out := make([]model.Option, 0, len(options)+1)
	out = append(out, options...)
	return append(out, opt)
}

// WithoutOption returns a copy of options without the option with id.
func WithoutOption(options []model.Option, id string) []model.Option {
	out := make([]model.Option, 0, len(options))
	for _, opt := range options {
		if opt.ID != id {
			out = append(out, opt)
		}
	}
	return out
}

// UpdateOption returns a copy of options with the option matching id
// replaced by fn's result. The id is preserved.
func UpdateOption(options []model.Option, id string, fn func(model.Option) model.Option) []model.Option {
	out := model.CloneOptions(options)
	for i, opt := range out {
		if opt.ID == id {
			next := fn(opt)
			next.ID = id
			out[i] = next
		}
	}
	return out
}
