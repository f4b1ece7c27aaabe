package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestI18nDetection(t *testing.T) {
	tests := []struct {
		name string
		src  string
		uses bool
		keys []string
	}{
		{
			name: "destructured translate",
			src: `export default function G(props, { i18n: { t } }) {
  return <p>{t("hello")}</p>;
}`,
			uses: true,
			keys: []string{"hello"},
		},
		{
			name: "destructured in body",
			src: `export default function G(props, { i18n }) {
  const { t: tr } = i18n;
  return <p>{tr("b")}{tr(` + "`a`" + `)}</p>;
}`,
			uses: true,
			keys: []string{"a", "b"},
		},
		{
			name: "member call",
			src: `export default function G(props, { i18n }) {
  return <p>{i18n.t("x")}</p>;
}`,
			uses: true,
			keys: []string{"x"},
		},
		{
			name: "context object",
			src: `export default function G(props, ctx) {
  return <p>{ctx.i18n.t("y")}</p>;
}`,
			uses: true,
			keys: []string{"y"},
		},
		{
			name: "context without i18n",
			src: `export default function G(props, ctx) {
  return <p>{ctx.state(1).value}</p>;
}`,
		},
		{
			name: "unrelated t",
			src: `export default function G() {
  return <p>{t("z")}</p>;
}`,
		},
		{
			name: "variant keys are included",
			src: `export default function G(props, { i18n }) {
  return <p>{i18n.t("main")}</p>;
}
G.suspense = (props, { i18n }) => <p>{i18n.t("loading")}</p>;`,
			uses: true,
			keys: []string{"loading", "main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := compile(t, tt.src)
			assert.Equal(t, tt.uses, result.UsesI18n)
			assert.Equal(t, tt.keys, result.I18nKeys)
			assert.Empty(t, result.Diagnostics)
		})
	}
}

func TestI18nDynamicKeysWarn(t *testing.T) {
	result := compile(t, `export default function G({ key }, { i18n: { t } }) {
  return <p>{t("static")}{t(key)}{t("a." + key)}</p>;
}`)
	assert.True(t, result.UsesI18n)
	assert.Equal(t, []string{"static"}, result.I18nKeys)

	require.Len(t, result.Diagnostics, 1)
	d := result.Diagnostics[0]
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, CodeDynamicI18nKey, d.Code)
	assert.Contains(t, d.Lines, "  key")
	assert.Contains(t, d.Lines, `  "a." + key`)
	assert.False(t, result.HasErrors())
}

func TestI18nOverrideList(t *testing.T) {
	result := compile(t, `export default function G({ key }, { i18n: { t } }) {
  return <p>{t(key)}</p>;
}
G.i18nKeys = ["one", "two", `+"`three`"+`];`)
	assert.True(t, result.UsesI18n)
	assert.Equal(t, []string{"one", "three", "two"}, result.I18nKeys)
	assert.Empty(t, result.Diagnostics)
	assert.Contains(t, result.Code, `G.i18nKeys = ["one", "two", `+"`three`"+`];`)
}

func TestI18nOverrideWithoutCapability(t *testing.T) {
	result := compile(t, `export default function G() {
  return <p>x</p>;
}
G.i18nKeys = ["only"];`)
	assert.True(t, result.UsesI18n)
	assert.Equal(t, []string{"only"}, result.I18nKeys)
}
