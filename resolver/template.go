package resolver

import (
	"fmt"
	"net/url"
	"strings"
)

// templateContext supplies the token substitutions available to `{token}`
// placeholders (§4.3 "Template rendering").
type templateContext struct {
	PeriodID     string
	PeriodName   string
	TableName    string
	DatasetID    string
	DatasourceID string
}

func (c templateContext) lookup(token string) (string, bool) {
	switch token {
	case "period_id":
		return c.PeriodID, true
	case "period_name":
		return c.PeriodName, true
	case "table_name":
		return c.TableName, true
	case "dataset_id":
		return c.DatasetID, true
	case "datasource_id":
		return c.DatasourceID, true
	}
	return "", false
}

// renderPlain substitutes `{token}` literally (used for Table.table/schema).
func renderPlain(tmpl string, ctx templateContext) (string, error) {
	return render(tmpl, ctx, func(s string) string { return s })
}

// renderEncoded substitutes `{token}` with percent-encoding of reserved
// characters (used for Path.path and Catalog.endpoint/method/auth).
func renderEncoded(tmpl string, ctx templateContext) (string, error) {
	return render(tmpl, ctx, url.QueryEscape)
}

func render(tmpl string, ctx templateContext, encode func(string) string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		if tmpl[i] == '{' {
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("TemplateRenderError: unterminated token starting at %d", i)
			}
			token := tmpl[i+1 : i+end]
			val, ok := ctx.lookup(token)
			if !ok {
				return "", fmt.Errorf("TemplateRenderError: unknown token %q", token)
			}
			b.WriteString(encode(val))
			i += end + 1
			continue
		}
		b.WriteByte(tmpl[i])
		i++
	}
	return b.String(), nil
}

// renderJSONValue walks a Catalog.params/headers JSON-like value
// (map[string]any / []any / scalars) recursively, rendering string leaves
// in encoded mode and passing non-string leaves through unchanged (§4.3).
func renderJSONValue(v any, ctx templateContext) (any, error) {
	switch val := v.(type) {
	case string:
		return renderEncoded(val, ctx)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			rv, err := renderJSONValue(vv, ctx)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			rv, err := renderJSONValue(vv, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return val, nil
	}
}
