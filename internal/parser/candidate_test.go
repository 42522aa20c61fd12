package parser

import (
	"testing"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
)

// Two plausible fares inside the middle third: a promo figure with no offer
// context, and the real fare surrounded by distance, time, and an accept
// verb. The promo line is padded so the context windows do not touch.
const twoPriceCard = "Ganhos de hoje\n" +
	"Saldo disponível na carteira digital\n" +
	"Bônus: R$ 49,00 para quem completar as metas da semana até domingo às 23h59 no aplicativo, válido somente para contas ativas e verificadas\n" +
	"Aceitar corrida: R$ 18,50 · 2,1 km · 12 min de viagem\n" +
	"Detalhes e condições no menu\n" +
	"Central de ajuda"

func TestSelectorPrefersContextSupportedCandidate(t *testing.T) {
	p := New(Config{})
	got := p.Parse(obs(twoPriceCard), models.PlatformUber)
	if got == nil {
		t.Fatalf("expected an offer")
	}
	if got.Price != 18.50 {
		t.Fatalf("price = %v, want 18.50 (context-supported match)", got.Price)
	}
	if got.ExtractionScore <= 0 {
		t.Fatalf("expected a positive extraction score with competing candidates, got %d", got.ExtractionScore)
	}
}

func TestSelectorDeterministic(t *testing.T) {
	p := New(Config{})
	first := p.Parse(obs(twoPriceCard), models.PlatformUber)
	if first == nil {
		t.Fatalf("expected an offer")
	}
	for i := 0; i < 50; i++ {
		again := p.Parse(obs(twoPriceCard), models.PlatformUber)
		if again == nil || again.Price != first.Price || again.ExtractionScore != first.ExtractionScore {
			t.Fatalf("run %d: selection changed: %+v vs %+v", i, again, first)
		}
	}
}

func TestSelectorTieBreaksOnFirstOccurrence(t *testing.T) {
	// identical context for both candidates: earliest must win
	text := "R$ 10,00\nR$ 11,00"
	cands := matchAll(text, models.PlatformUnknown, RolePrice)
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	got, score := selectCandidate(text, cands, nil, nil, nil, 80)
	if got.value != 10.00 {
		t.Fatalf("tie should break on first occurrence, got %v", got.value)
	}
	if score != 0 {
		t.Fatalf("no context at all should score 0, got %d", score)
	}
}

func TestScoreCandidateWeights(t *testing.T) {
	text := "Aceitar corrida: 2,0 km · 8 min · R$ 20,00 ★ 4,80"
	cands := matchAll(text, models.PlatformUber, RolePrice)
	if len(cands) != 1 {
		t.Fatalf("expected 1 price candidate, got %d", len(cands))
	}
	dists := matchAll(text, models.PlatformUber, RoleDistance)
	times := matchAll(text, models.PlatformUber, RoleTime)
	ratings := ratingsInRange(matchAll(text, models.PlatformUber, RoleRating))

	// distance(3) + time(3) + action(2) + context(2) + rating(1) = 11
	if s := scoreCandidate(text, cands[0], dists, times, ratings, 80); s != 11 {
		t.Fatalf("score = %d, want 11", s)
	}
}

func TestScoreBonusMarker(t *testing.T) {
	text := "R$ 16,00 +R$ 4,00 de dinâmica"
	cands := matchAll(text, models.PlatformUnknown, RolePrice)
	if len(cands) == 0 {
		t.Fatalf("expected candidates")
	}
	s := scoreCandidate(text, cands[0], nil, nil, nil, 40)
	if s != weightBonusMarker {
		t.Fatalf("score = %d, want %d (bonus marker only)", s, weightBonusMarker)
	}
}
