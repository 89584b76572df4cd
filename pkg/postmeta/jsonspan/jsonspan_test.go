package jsonspan

import "testing"

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{
			name:   "bare object",
			input:  `{"X":"Y"}`,
			want:   `{"X":"Y"}`,
			wantOK: true,
		},
		{
			name:   "surrounding prose",
			input:  "Here you go:\n{\"X\":\"Y\"}\nHope that helps!",
			want:   `{"X":"Y"}`,
			wantOK: true,
		},
		{
			name:   "code fence",
			input:  "```json\n{\"Career\": \"Career Growth\"}\n```",
			want:   `{"Career": "Career Growth"}`,
			wantOK: true,
		},
		{
			name:   "nested object",
			input:  `result: {"a": {"b": "c"}, "d": "e"} done`,
			want:   `{"a": {"b": "c"}, "d": "e"}`,
			wantOK: true,
		},
		{
			name:   "braces inside strings",
			input:  `{"weird}tag": "Clean {Tag}"} trailing }`,
			want:   `{"weird}tag": "Clean {Tag}"}`,
			wantOK: true,
		},
		{
			name:   "escaped quote inside string",
			input:  `{"say \"hi}\"": "Greeting"}`,
			want:   `{"say \"hi}\"": "Greeting"}`,
			wantOK: true,
		},
		{
			name:   "first of two objects",
			input:  `{"a":"b"} and also {"c":"d"}`,
			want:   `{"a":"b"}`,
			wantOK: true,
		},
		{
			name:   "stray brace before object",
			input:  "Mapping { follows:\n{\"a\":\"b\"}",
			want:   `{"a":"b"}`,
			wantOK: true,
		},
		{
			name:   "unbalanced",
			input:  `{"a": "b"`,
			wantOK: false,
		},
		{
			name:   "no braces",
			input:  "Sorry, I can't help with that.",
			wantOK: false,
		},
		{
			name:   "empty",
			input:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstObject(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("FirstObject(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("FirstObject(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
