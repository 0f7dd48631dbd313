package parser

import (
	"errors"
	"testing"
)

// scanAll drains the scanner, stopping after TokenStreamEnd or on error.
func scanAll(t *testing.T, document string) ([]Token, error) {
	t.Helper()
	sc := NewScanner(document)
	var tokens []Token
	for {
		tok, err := sc.Next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenStreamEnd {
			return tokens, nil
		}
	}
}

func checkTokens(t *testing.T, got []Token, want []Token) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d\ngot: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Kind != want[i].Kind {
			t.Errorf("token %d: Kind = %v, want %v", i, got[i].Kind, want[i].Kind)
		}
		if got[i].Start != want[i].Start {
			t.Errorf("token %d (%v): Start = %+v, want %+v", i, want[i].Kind, got[i].Start, want[i].Start)
		}
		if got[i].End != want[i].End {
			t.Errorf("token %d (%v): End = %+v, want %+v", i, want[i].Kind, got[i].End, want[i].End)
		}
		if got[i].Value != want[i].Value {
			t.Errorf("token %d (%v): Value = %q, want %q", i, want[i].Kind, got[i].Value, want[i].Value)
		}
	}
}

func TestScannerIncludeList(t *testing.T) {
	document := "include:\n  - sub.dir.bar\n  - some.other.state"
	got, err := scanAll(t, document)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	checkTokens(t, got, []Token{
		{TokenStreamStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenBlockMappingStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenKey, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenScalar, Mark{0, 0, 0}, Mark{7, 0, 7}, "include"},
		{TokenValue, Mark{7, 0, 7}, Mark{8, 0, 8}, ""},
		{TokenBlockSequenceStart, Mark{11, 1, 2}, Mark{11, 1, 2}, ""},
		{TokenBlockEntry, Mark{11, 1, 2}, Mark{12, 1, 3}, ""},
		{TokenScalar, Mark{13, 1, 4}, Mark{24, 1, 15}, "sub.dir.bar"},
		{TokenBlockEntry, Mark{27, 2, 2}, Mark{28, 2, 3}, ""},
		{TokenScalar, Mark{29, 2, 4}, Mark{45, 2, 20}, "some.other.state"},
		{TokenBlockEnd, Mark{45, 2, 20}, Mark{45, 2, 20}, ""},
		{TokenBlockEnd, Mark{45, 2, 20}, Mark{45, 2, 20}, ""},
		{TokenStreamEnd, Mark{45, 2, 20}, Mark{45, 2, 20}, ""},
	})
}

func TestScannerSingleState(t *testing.T) {
	document := "/etc/systemd/system/rootco-salt-backup.service:\n" +
		"  file.managed:\n" +
		"    - source: salt://rootco/salt_backup/files/rootco-salt-backup.service\n" +
		"    - user: root"
	got, err := scanAll(t, document)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	checkTokens(t, got, []Token{
		{TokenStreamStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenBlockMappingStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenKey, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenScalar, Mark{0, 0, 0}, Mark{46, 0, 46}, "/etc/systemd/system/rootco-salt-backup.service"},
		{TokenValue, Mark{46, 0, 46}, Mark{47, 0, 47}, ""},
		{TokenBlockMappingStart, Mark{50, 1, 2}, Mark{50, 1, 2}, ""},
		{TokenKey, Mark{50, 1, 2}, Mark{50, 1, 2}, ""},
		{TokenScalar, Mark{50, 1, 2}, Mark{62, 1, 14}, "file.managed"},
		{TokenValue, Mark{62, 1, 14}, Mark{63, 1, 15}, ""},
		{TokenBlockSequenceStart, Mark{68, 2, 4}, Mark{68, 2, 4}, ""},
		{TokenBlockEntry, Mark{68, 2, 4}, Mark{69, 2, 5}, ""},
		{TokenBlockMappingStart, Mark{70, 2, 6}, Mark{70, 2, 6}, ""},
		{TokenKey, Mark{70, 2, 6}, Mark{70, 2, 6}, ""},
		{TokenScalar, Mark{70, 2, 6}, Mark{76, 2, 12}, "source"},
		{TokenValue, Mark{76, 2, 12}, Mark{77, 2, 13}, ""},
		{TokenScalar, Mark{78, 2, 14}, Mark{136, 2, 72}, "salt://rootco/salt_backup/files/rootco-salt-backup.service"},
		{TokenBlockEnd, Mark{141, 3, 4}, Mark{141, 3, 4}, ""},
		{TokenBlockEntry, Mark{141, 3, 4}, Mark{142, 3, 5}, ""},
		{TokenBlockMappingStart, Mark{143, 3, 6}, Mark{143, 3, 6}, ""},
		{TokenKey, Mark{143, 3, 6}, Mark{143, 3, 6}, ""},
		{TokenScalar, Mark{143, 3, 6}, Mark{147, 3, 10}, "user"},
		{TokenValue, Mark{147, 3, 10}, Mark{148, 3, 11}, ""},
		{TokenScalar, Mark{149, 3, 12}, Mark{153, 3, 16}, "root"},
		{TokenBlockEnd, Mark{153, 3, 16}, Mark{153, 3, 16}, ""},
		{TokenBlockEnd, Mark{153, 3, 16}, Mark{153, 3, 16}, ""},
		{TokenBlockEnd, Mark{153, 3, 16}, Mark{153, 3, 16}, ""},
		{TokenBlockEnd, Mark{153, 3, 16}, Mark{153, 3, 16}, ""},
		{TokenStreamEnd, Mark{153, 3, 16}, Mark{153, 3, 16}, ""},
	})
}

func TestScannerTopFile(t *testing.T) {
	document := "base:\n  '*':\n    - core\n    - ssh"
	got, err := scanAll(t, document)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	checkTokens(t, got, []Token{
		{TokenStreamStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenBlockMappingStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenKey, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenScalar, Mark{0, 0, 0}, Mark{4, 0, 4}, "base"},
		{TokenValue, Mark{4, 0, 4}, Mark{5, 0, 5}, ""},
		{TokenBlockMappingStart, Mark{8, 1, 2}, Mark{8, 1, 2}, ""},
		{TokenKey, Mark{8, 1, 2}, Mark{8, 1, 2}, ""},
		{TokenScalar, Mark{8, 1, 2}, Mark{11, 1, 5}, "*"},
		{TokenValue, Mark{11, 1, 5}, Mark{12, 1, 6}, ""},
		{TokenBlockSequenceStart, Mark{17, 2, 4}, Mark{17, 2, 4}, ""},
		{TokenBlockEntry, Mark{17, 2, 4}, Mark{18, 2, 5}, ""},
		{TokenScalar, Mark{19, 2, 6}, Mark{23, 2, 10}, "core"},
		{TokenBlockEntry, Mark{28, 3, 4}, Mark{29, 3, 5}, ""},
		{TokenScalar, Mark{30, 3, 6}, Mark{33, 3, 9}, "ssh"},
		{TokenBlockEnd, Mark{33, 3, 9}, Mark{33, 3, 9}, ""},
		{TokenBlockEnd, Mark{33, 3, 9}, Mark{33, 3, 9}, ""},
		{TokenBlockEnd, Mark{33, 3, 9}, Mark{33, 3, 9}, ""},
		{TokenStreamEnd, Mark{33, 3, 9}, Mark{33, 3, 9}, ""},
	})
}

func TestScannerBareScalar(t *testing.T) {
	got, err := scanAll(t, "jdoe")
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	checkTokens(t, got, []Token{
		{TokenStreamStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenScalar, Mark{0, 0, 0}, Mark{4, 0, 4}, "jdoe"},
		{TokenStreamEnd, Mark{4, 0, 4}, Mark{4, 0, 4}, ""},
	})
}

func TestScannerEmptyLastEntry(t *testing.T) {
	document := "/srv/git/salt-states:\n" +
		"  file.symlink:\n" +
		"    - target: /srv/salt\n" +
		"    -"
	got, err := scanAll(t, document)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	checkTokens(t, got, []Token{
		{TokenStreamStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenBlockMappingStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenKey, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenScalar, Mark{0, 0, 0}, Mark{20, 0, 20}, "/srv/git/salt-states"},
		{TokenValue, Mark{20, 0, 20}, Mark{21, 0, 21}, ""},
		{TokenBlockMappingStart, Mark{24, 1, 2}, Mark{24, 1, 2}, ""},
		{TokenKey, Mark{24, 1, 2}, Mark{24, 1, 2}, ""},
		{TokenScalar, Mark{24, 1, 2}, Mark{36, 1, 14}, "file.symlink"},
		{TokenValue, Mark{36, 1, 14}, Mark{37, 1, 15}, ""},
		{TokenBlockSequenceStart, Mark{42, 2, 4}, Mark{42, 2, 4}, ""},
		{TokenBlockEntry, Mark{42, 2, 4}, Mark{43, 2, 5}, ""},
		{TokenBlockMappingStart, Mark{44, 2, 6}, Mark{44, 2, 6}, ""},
		{TokenKey, Mark{44, 2, 6}, Mark{44, 2, 6}, ""},
		{TokenScalar, Mark{44, 2, 6}, Mark{50, 2, 12}, "target"},
		{TokenValue, Mark{50, 2, 12}, Mark{51, 2, 13}, ""},
		{TokenScalar, Mark{52, 2, 14}, Mark{61, 2, 23}, "/srv/salt"},
		{TokenBlockEnd, Mark{66, 3, 4}, Mark{66, 3, 4}, ""},
		{TokenBlockEntry, Mark{66, 3, 4}, Mark{67, 3, 5}, ""},
		{TokenBlockEnd, Mark{67, 3, 5}, Mark{67, 3, 5}, ""},
		{TokenBlockEnd, Mark{67, 3, 5}, Mark{67, 3, 5}, ""},
		{TokenBlockEnd, Mark{67, 3, 5}, Mark{67, 3, 5}, ""},
		{TokenStreamEnd, Mark{67, 3, 5}, Mark{67, 3, 5}, ""},
	})
}

func TestScannerCallWithoutParameters(t *testing.T) {
	document := "jdoe:\n  user.present"
	got, err := scanAll(t, document)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	checkTokens(t, got, []Token{
		{TokenStreamStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenBlockMappingStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenKey, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenScalar, Mark{0, 0, 0}, Mark{4, 0, 4}, "jdoe"},
		{TokenValue, Mark{4, 0, 4}, Mark{5, 0, 5}, ""},
		{TokenScalar, Mark{8, 1, 2}, Mark{20, 1, 14}, "user.present"},
		{TokenBlockEnd, Mark{20, 1, 14}, Mark{20, 1, 14}, ""},
		{TokenStreamEnd, Mark{20, 1, 14}, Mark{20, 1, 14}, ""},
	})
}

// A flow sequence value followed by a nested block sequence at the same
// indentation as its parent mapping: the nested "require" list gets no
// BlockSequenceStart token.
func TestScannerFlowSequenceAndNestedList(t *testing.T) {
	document := "apache2:\n" +
		"  pkg.installed: []\n" +
		"  service.running:\n" +
		"    - enable: True\n" +
		"    - require:\n" +
		"      - pkg: apache2"
	got, err := scanAll(t, document)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	checkTokens(t, got, []Token{
		{TokenStreamStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenBlockMappingStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenKey, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenScalar, Mark{0, 0, 0}, Mark{7, 0, 7}, "apache2"},
		{TokenValue, Mark{7, 0, 7}, Mark{8, 0, 8}, ""},
		{TokenBlockMappingStart, Mark{11, 1, 2}, Mark{11, 1, 2}, ""},
		{TokenKey, Mark{11, 1, 2}, Mark{11, 1, 2}, ""},
		{TokenScalar, Mark{11, 1, 2}, Mark{24, 1, 15}, "pkg.installed"},
		{TokenValue, Mark{24, 1, 15}, Mark{25, 1, 16}, ""},
		{TokenFlowSequenceStart, Mark{26, 1, 17}, Mark{27, 1, 18}, ""},
		{TokenFlowSequenceEnd, Mark{27, 1, 18}, Mark{28, 1, 19}, ""},
		{TokenKey, Mark{31, 2, 2}, Mark{31, 2, 2}, ""},
		{TokenScalar, Mark{31, 2, 2}, Mark{46, 2, 17}, "service.running"},
		{TokenValue, Mark{46, 2, 17}, Mark{47, 2, 18}, ""},
		{TokenBlockSequenceStart, Mark{52, 3, 4}, Mark{52, 3, 4}, ""},
		{TokenBlockEntry, Mark{52, 3, 4}, Mark{53, 3, 5}, ""},
		{TokenBlockMappingStart, Mark{54, 3, 6}, Mark{54, 3, 6}, ""},
		{TokenKey, Mark{54, 3, 6}, Mark{54, 3, 6}, ""},
		{TokenScalar, Mark{54, 3, 6}, Mark{60, 3, 12}, "enable"},
		{TokenValue, Mark{60, 3, 12}, Mark{61, 3, 13}, ""},
		{TokenScalar, Mark{62, 3, 14}, Mark{66, 3, 18}, "True"},
		{TokenBlockEnd, Mark{71, 4, 4}, Mark{71, 4, 4}, ""},
		{TokenBlockEntry, Mark{71, 4, 4}, Mark{72, 4, 5}, ""},
		{TokenBlockMappingStart, Mark{73, 4, 6}, Mark{73, 4, 6}, ""},
		{TokenKey, Mark{73, 4, 6}, Mark{73, 4, 6}, ""},
		{TokenScalar, Mark{73, 4, 6}, Mark{80, 4, 13}, "require"},
		{TokenValue, Mark{80, 4, 13}, Mark{81, 4, 14}, ""},
		{TokenBlockEntry, Mark{88, 5, 6}, Mark{89, 5, 7}, ""},
		{TokenBlockMappingStart, Mark{90, 5, 8}, Mark{90, 5, 8}, ""},
		{TokenKey, Mark{90, 5, 8}, Mark{90, 5, 8}, ""},
		{TokenScalar, Mark{90, 5, 8}, Mark{93, 5, 11}, "pkg"},
		{TokenValue, Mark{93, 5, 11}, Mark{94, 5, 12}, ""},
		{TokenScalar, Mark{95, 5, 13}, Mark{102, 5, 20}, "apache2"},
		{TokenBlockEnd, Mark{102, 5, 20}, Mark{102, 5, 20}, ""},
		{TokenBlockEnd, Mark{102, 5, 20}, Mark{102, 5, 20}, ""},
		{TokenBlockEnd, Mark{102, 5, 20}, Mark{102, 5, 20}, ""},
		{TokenBlockEnd, Mark{102, 5, 20}, Mark{102, 5, 20}, ""},
		{TokenBlockEnd, Mark{102, 5, 20}, Mark{102, 5, 20}, ""},
		{TokenStreamEnd, Mark{102, 5, 20}, Mark{102, 5, 20}, ""},
	})
}

// A dedent that turns a plain scalar into a stale required key: the error is
// raised before any token queued behind the broken key is delivered.
func TestScannerStaleKeyError(t *testing.T) {
	document := "/etc/systemd/system/rootco-salt-backup.service:\n" +
		"  file.managed:\n" +
		"    - user: root\n" +
		"    - group: root\n" +
		"  virt\n"
	got, err := scanAll(t, document)
	if err == nil {
		t.Fatalf("Next() error = nil, want scan error")
	}
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("error type = %T, want *ScanError", err)
	}
	if scanErr.Context == nil {
		t.Fatalf("Context = nil, want mark")
	}
	if want := (Mark{101, 4, 2}); *scanErr.Context != want {
		t.Errorf("Context = %+v, want %+v", *scanErr.Context, want)
	}
	if want := (Mark{106, 5, 0}); scanErr.Problem != want {
		t.Errorf("Problem = %+v, want %+v", scanErr.Problem, want)
	}

	// Everything up to the "- group: root" value is delivered; the tokens
	// queued while scanning "virt" are withheld.
	if len(got) != 23 {
		t.Fatalf("delivered tokens = %d, want 23", len(got))
	}
	last := got[len(got)-1]
	if last.Kind != TokenScalar || last.Value != "root" {
		t.Errorf("last token = %v, want Scalar %q", last, "root")
	}
	if want := (Mark{94, 3, 13}); last.Start != want {
		t.Errorf("last token Start = %+v, want %+v", last.Start, want)
	}
}

func TestScannerNestedMappings(t *testing.T) {
	document := "extend:\n" +
		"  some_state:\n" +
		"    file:\n" +
		"      - name: /etc/foo/bar"
	got, err := scanAll(t, document)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	checkTokens(t, got, []Token{
		{TokenStreamStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenBlockMappingStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenKey, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenScalar, Mark{0, 0, 0}, Mark{6, 0, 6}, "extend"},
		{TokenValue, Mark{6, 0, 6}, Mark{7, 0, 7}, ""},
		{TokenBlockMappingStart, Mark{10, 1, 2}, Mark{10, 1, 2}, ""},
		{TokenKey, Mark{10, 1, 2}, Mark{10, 1, 2}, ""},
		{TokenScalar, Mark{10, 1, 2}, Mark{20, 1, 12}, "some_state"},
		{TokenValue, Mark{20, 1, 12}, Mark{21, 1, 13}, ""},
		{TokenBlockMappingStart, Mark{26, 2, 4}, Mark{26, 2, 4}, ""},
		{TokenKey, Mark{26, 2, 4}, Mark{26, 2, 4}, ""},
		{TokenScalar, Mark{26, 2, 4}, Mark{30, 2, 8}, "file"},
		{TokenValue, Mark{30, 2, 8}, Mark{31, 2, 9}, ""},
		{TokenBlockSequenceStart, Mark{38, 3, 6}, Mark{38, 3, 6}, ""},
		{TokenBlockEntry, Mark{38, 3, 6}, Mark{39, 3, 7}, ""},
		{TokenBlockMappingStart, Mark{40, 3, 8}, Mark{40, 3, 8}, ""},
		{TokenKey, Mark{40, 3, 8}, Mark{40, 3, 8}, ""},
		{TokenScalar, Mark{40, 3, 8}, Mark{44, 3, 12}, "name"},
		{TokenValue, Mark{44, 3, 12}, Mark{45, 3, 13}, ""},
		{TokenScalar, Mark{46, 3, 14}, Mark{58, 3, 26}, "/etc/foo/bar"},
		{TokenBlockEnd, Mark{58, 3, 26}, Mark{58, 3, 26}, ""},
		{TokenBlockEnd, Mark{58, 3, 26}, Mark{58, 3, 26}, ""},
		{TokenBlockEnd, Mark{58, 3, 26}, Mark{58, 3, 26}, ""},
		{TokenBlockEnd, Mark{58, 3, 26}, Mark{58, 3, 26}, ""},
		{TokenBlockEnd, Mark{58, 3, 26}, Mark{58, 3, 26}, ""},
		{TokenStreamEnd, Mark{58, 3, 26}, Mark{58, 3, 26}, ""},
	})
}

func TestScannerEmptyDocument(t *testing.T) {
	got, err := scanAll(t, "")
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	checkTokens(t, got, []Token{
		{TokenStreamStart, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
		{TokenStreamEnd, Mark{0, 0, 0}, Mark{0, 0, 0}, ""},
	})
}
