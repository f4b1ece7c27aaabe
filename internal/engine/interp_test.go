package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalLogs runs body inside a component and returns what it logged.
func evalLogs(t *testing.T, body string) ([]string, error) {
	t.Helper()
	e := newTestEngine()
	code := `import { reactiveElement } from "wisp/client";
function Logs() {
` + body + `
  return ["div", {}, ""];
}
export default reactiveElement(Logs, []);
`
	require.NoError(t, e.Load(context.Background(), "logs.js", code))
	err := e.Mount(nil)
	return logs(e, 0), err
}

func TestInterpreter(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "arithmetic and coercion",
			body: `log(1 + 2 * 3, "a" + 1, 7 % 3, 2 ** 10, "3" * "4", 1 / 0, -(0 / 0));`,
			want: []string{"7 a1 1 1024 12 Infinity NaN"},
		},
		{
			name: "equality",
			body: `log(1 == "1", 1 === "1", null == undefined, null === undefined, NaN === NaN);`,
			want: []string{"true false true false false"},
		},
		{
			name: "logical operators",
			body: `let a = null; a ??= 5; let b = 0; b ||= 2; let c = 1; c &&= 3;
log(a, b, c, 0 || "x", 1 && "y", undefined ?? "z");`,
			want: []string{"5 2 3 x y z"},
		},
		{
			name: "template literals",
			body: "const n = 2; log(`n=${n} next=${n + 1}\\tdone`);",
			want: []string{"n=2 next=3\tdone"},
		},
		{
			name: "tagged template",
			body: "const tag = (s, ...v) => s.join(\"|\") + v.join(\",\"); log(tag`a${1}b${2}c`);",
			want: []string{"a|b|c1,2"},
		},
		{
			name: "destructuring",
			body: `const { a, b: { c = 4 } = {}, ...rest } = { a: 1, d: 5, e: 6 };
const [x, , y = 9, ...tail] = [1, 2, undefined, 4, 5];
log(a, c, JSON.stringify(rest), x, y, tail.length);`,
			want: []string{`1 4 {"d":5,"e":6} 1 9 2`},
		},
		{
			name: "let per iteration",
			body: `const fns = [];
for (let i = 0; i < 3; i++) fns.push(() => i);
log(fns.map((f) => f()).join(","));`,
			want: []string{"0,1,2"},
		},
		{
			name: "loops with break and continue",
			body: `let out = [];
for (const v of [1, 2, 3, 4, 5]) { if (v === 2) continue; if (v === 5) break; out.push(v); }
for (const k in { p: 1, q: 2 }) out.push(k);
let n = 0; while (n < 3) n++;
do { n += 10; } while (n < 20);
log(out.join(""), n);`,
			want: []string{"134pq 23"},
		},
		{
			name: "switch fallthrough",
			body: `function kind(v) {
  let out = "";
  switch (v) {
    case 1:
      out += "one";
    case 2:
      out += "two";
      break;
    default:
      out += "other";
  }
  return out;
}
log(kind(1), kind(2), kind(3));`,
			want: []string{"onetwo two other"},
		},
		{
			name: "try catch finally",
			body: `try { throw new TypeError("bad"); } catch (e) { log(e.name, e.message); } finally { log("finally"); }
try { undefinedThing(); } catch ({ name }) { log(name); }
try { const k = 1; k = 2; } catch (e) { log(e.message); }`,
			want: []string{"TypeError bad", "finally", "ReferenceError", "Assignment to constant variable."},
		},
		{
			name: "optional chaining",
			body: `const o = { a: { b: 1 }, f: null };
log(o?.a?.b, o.x?.y, o.f?.(), typeof o.x?.y.z);`,
			want: []string{"1 undefined undefined undefined"},
		},
		{
			name: "closures and hoisting",
			body: `log(twice(4));
function twice(n) { return n * 2; }
function counter() { let c = 0; return () => ++c; }
const next = counter(); next(); log(next());`,
			want: []string{"8", "2"},
		},
		{
			name: "array methods",
			body: `const xs = [3, 1, 2];
log(xs.map((x) => x * 2).join(), xs.filter((x) => x > 1).length, xs.reduce((a, b) => a + b, 0));
log([...xs].sort().join(), xs.includes(2), xs.indexOf(9), xs.find((x) => x < 3), xs.some((x) => x > 2), xs.every((x) => x > 2));
log([[1], [2, 3]].flat().length, xs.slice(-2).join(), xs.at(-1), Array.from([1, 2], (x) => x + 1).join());`,
			want: []string{"6,2,4 2 6", "1,2,3 true -1 1 true false", "3 1,2 2 2,3"},
		},
		{
			name: "string methods",
			body: `const s = "  Hello World  ";
log(s.trim().toUpperCase(), s.trim().split(" ").length, "abc".padStart(5, "-"), "a-b-c".replaceAll("-", "+"), "abc".at(-1), "ab".repeat(2));`,
			want: []string{"HELLO WORLD 2 --abc a+b+c c abab"},
		},
		{
			name: "numbers",
			body: `log((3.14159).toFixed(2), (255).toString(16), parseInt("42px"), parseFloat("1.5"), Math.max(1, 5, 3), Math.round(2.5), 1e21, 0.0000001);`,
			want: []string{"3.14 ff 42 1.5 5 3 1e+21 1e-7"},
		},
		{
			name: "typeof and objects",
			body: `const o = { b: 2, a: 1 };
delete o.b;
log(typeof missing, typeof 1, typeof "s", typeof o, typeof log, Object.keys(o).join(), "a" in o);
log(o, [1, "x"]);`,
			want: []string{"undefined number string object function a true", `{ a: 1 } [1, "x"]`},
		},
		{
			name: "update expressions",
			body: `let i = 1; const a = i++; const b = ++i; const o = { n: 1 }; o.n += 4; o.n--;
log(a, b, i, o.n);`,
			want: []string{"1 3 3 4"},
		},
		{
			name: "json stringify keeps insertion order",
			body: `log(JSON.stringify({ z: 1, a: [true, null, "s"], f: () => 1, u: undefined }));`,
			want: []string{`{"z":1,"a":[true,null,"s"]}`},
		},
		{
			name: "object spread and computed keys",
			body: `const k = "dyn"; const base = { a: 1 }; const o = { ...base, [k]: 2, a: 3 };
log(JSON.stringify(o), JSON.stringify(Object.entries(o)));`,
			want: []string{`{"a":3,"dyn":2} [["a",3],["dyn",2]]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalLogs(t, tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpreterErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code RuntimeErrorCode
		msg  string
	}{
		{
			name: "uncaught throw",
			body: `throw "plain";`,
			code: ErrCodeThrown,
			msg:  "uncaught plain",
		},
		{
			name: "reading null",
			body: `const o = null; o.x;`,
			code: ErrCodeThrown,
			msg:  "Cannot read properties of null (reading 'x')",
		},
		{
			name: "calling a number",
			body: `const n = 1; n();`,
			code: ErrCodeNotCallable,
			msg:  "n is not a function",
		},
		{
			name: "async functions",
			body: `async function f() {} f();`,
			code: ErrCodeUnsupported,
		},
		{
			name: "runaway recursion",
			body: `function f() { return f(); } f();`,
			code: ErrCodeThrown,
			msg:  "RangeError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalLogs(t, tt.body)
			require.Error(t, err)
			assert.True(t, HasCode(err, tt.code), "got %v", err)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestInterpreterLoopBound(t *testing.T) {
	_, err := evalLogs(t, `while (true) {}`)
	require.Error(t, err)
	assert.True(t, IsQuotaError(err))
}
