package errors

import "testing"

func TestErrorCodeTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		phase    string
		category string
	}{
		{"PAR001", PAR001, "parser", "syntax"},
		{"PAR004", PAR004, "parser", "syntax"},
		{"MOD001", MOD001, "module", "structure"},
		{"MOD004", MOD004, "module", "namespace"},
		{"MOD006", MOD006, "module", "structure"},
		{"LDR001", LDR001, "loader", "resolution"},
		{"LDR002", LDR002, "loader", "dependency"},
		{"LDR006", LDR006, "loader", "lint"},
		{"TC002", TC002, "typecheck", "scope"},
		{"TC003", TC003, "typecheck", "constraint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, exists := GetErrorInfo(tt.code)
			if !exists {
				t.Fatalf("error code %s not found in registry", tt.code)
			}
			if info.Code != tt.code {
				t.Errorf("code mismatch: got %s, want %s", info.Code, tt.code)
			}
			if info.Phase != tt.phase {
				t.Errorf("phase mismatch for %s: got %s, want %s", tt.code, info.Phase, tt.phase)
			}
			if info.Category != tt.category {
				t.Errorf("category mismatch for %s: got %s, want %s", tt.code, info.Category, tt.category)
			}
		})
	}
}

func TestErrorTypeCheckers(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		isParser bool
		isModule bool
		isLoader bool
		isType   bool
	}{
		{"parser error", PAR001, true, false, false, false},
		{"module error", MOD001, false, true, false, false},
		{"loader error", LDR001, false, false, true, false},
		{"type error", TC002, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsParserError(tt.code); got != tt.isParser {
				t.Errorf("IsParserError(%s) = %v, want %v", tt.code, got, tt.isParser)
			}
			if got := IsModuleError(tt.code); got != tt.isModule {
				t.Errorf("IsModuleError(%s) = %v, want %v", tt.code, got, tt.isModule)
			}
			if got := IsLoaderError(tt.code); got != tt.isLoader {
				t.Errorf("IsLoaderError(%s) = %v, want %v", tt.code, got, tt.isLoader)
			}
			if got := IsTypeError(tt.code); got != tt.isType {
				t.Errorf("IsTypeError(%s) = %v, want %v", tt.code, got, tt.isType)
			}
		})
	}
}

func TestAllErrorCodesInRegistry(t *testing.T) {
	allCodes := []string{
		PAR001, PAR004, PAR005,
		MOD001, MOD004, MOD005, MOD006,
		LDR001, LDR002, LDR004, LDR006,
		TC002, TC003,
	}

	for _, code := range allCodes {
		t.Run(code, func(t *testing.T) {
			if _, exists := GetErrorInfo(code); !exists {
				t.Errorf("error code %s is defined but not in registry", code)
			}
		})
	}

	if len(ErrorRegistry) < len(allCodes) {
		t.Errorf("registry has %d codes, expected at least %d", len(ErrorRegistry), len(allCodes))
	}
}

func TestErrorInfoConsistency(t *testing.T) {
	validPhases := map[string]bool{
		"parser": true, "module": true, "loader": true, "typecheck": true,
	}
	for code, info := range ErrorRegistry {
		if info.Code != code {
			t.Errorf("code mismatch in registry: key=%s, info.Code=%s", code, info.Code)
		}
		if len(code) < 4 || len(code) > 6 {
			t.Errorf("invalid code format: %s", code)
		}
		if !validPhases[info.Phase] {
			t.Errorf("invalid phase for %s: %s", code, info.Phase)
		}
		if info.Description == "" {
			t.Errorf("empty description for %s", code)
		}
	}
}
