package translation

import "testing"

func TestAssessFlagsIdentityAndMissingScript(t *testing.T) {
	t.Parallel()

	report := Assess("Hello world", "Hello world", "si")
	if len(report.Issues) < 2 {
		t.Fatalf("expected at least two issues, got %#v", report.Issues)
	}
	if report.Score > 20 {
		t.Fatalf("expected score <= 20, got %d", report.Score)
	}
}

func TestAssessScoresGoodTranslation(t *testing.T) {
	t.Parallel()

	report := Assess("Marine research", "கடல் ஆராய்ச்சி", "ta")
	if report.Score != 100 || len(report.Issues) != 0 {
		t.Fatalf("expected clean report, got %#v", report)
	}
}

func TestAssessLengthRatio(t *testing.T) {
	t.Parallel()

	report := Assess("A long sentence about coastal erosion", "Kurz", "de")
	if report.Score != scriptPoints+identityPoints {
		t.Fatalf("expected only the length check to fail, got %#v", report)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("expected one issue, got %#v", report.Issues)
	}
}

func TestAssessLatinTargetsSkipScriptCheck(t *testing.T) {
	t.Parallel()

	report := Assess("Fish stock", "Stock de poissons", "fr")
	if report.Score != 100 {
		t.Fatalf("expected full score for Latin target, got %#v", report)
	}
}
