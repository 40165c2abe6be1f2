package content

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// MinTextLength is the shortest passage accepted by the text flow.
const MinTextLength = 10

const (
	DefaultNumQuestions = 5
	DefaultDifficulty   = DifficultyMedium
)

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag = "notblank"
	minTextTag  = "mintext"
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report json names rather than Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	validate.RegisterStructValidation(createRequestStructValidation, CreateRequest{})

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, minTextTag} {
		_ = validate.RegisterTranslation(tag, translator, noop, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case minTextTag:
		return "text must be at least 10 characters"
	default:
		return fe.Error()
	}
}

func createRequestStructValidation(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(CreateRequest)
	if !ok || req.Source != SourceText {
		return
	}
	if len([]rune(strings.TrimSpace(req.Text))) < MinTextLength {
		sl.ReportError(req.Text, "text", "Text", minTextTag, "")
	}
}

// FieldError is one failed field check.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists the fields of a request that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

// Validate checks v against its validate tags. Failures are returned as
// *ValidationError with human readable messages.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Namespace(),
			Message: fe.Translate(translator),
		})
	}
	sort.SliceStable(out.Fields, func(i, j int) bool { return out.Fields[i].Field < out.Fields[j].Field })
	return out
}

// WithDefaults fills unset options with their defaults.
func (r CreateRequest) WithDefaults() CreateRequest {
	if r.Options.NumQuestions == 0 {
		r.Options.NumQuestions = DefaultNumQuestions
	}
	if r.Options.Difficulty == "" {
		r.Options.Difficulty = DefaultDifficulty
	}
	r.Text = strings.TrimSpace(r.Text)
	r.Topic = strings.TrimSpace(r.Topic)
	r.FilePath = strings.TrimSpace(r.FilePath)
	r.Options.AssignTo = strings.TrimSpace(r.Options.AssignTo)
	return r
}

// Check applies defaults and validates the request.
func (r CreateRequest) Check() (CreateRequest, error) {
	r = r.WithDefaults()
	if err := Validate(r); err != nil {
		return r, err
	}
	return r, nil
}
