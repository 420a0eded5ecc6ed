package verify

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/newsroom/internal/content"
	"horse.fit/newsroom/internal/research"
)

// SearchClaimChecker scores a claim by how closely grounded search results
// corroborate it, weighted by result credibility.
type SearchClaimChecker struct {
	searcher research.GroundedSearcher
}

func NewSearchClaimChecker(searcher research.GroundedSearcher) *SearchClaimChecker {
	return &SearchClaimChecker{searcher: searcher}
}

func (c *SearchClaimChecker) CheckClaim(ctx context.Context, claim research.Claim) (float64, error) {
	results, err := c.searcher.SearchGrounded(ctx, claim.Text)
	if err != nil {
		return 0, fmt.Errorf("claim verification search: %w", err)
	}

	var best float64
	for _, result := range results {
		similarity := content.TrigramJaccard(claim.Text, result.Snippet)
		credibility := result.Credibility
		if credibility <= 0 {
			credibility = 0.5
		}
		if score := similarity * credibility; score > best {
			best = score
		}
	}
	return best, nil
}

// GeneratorGapFiller asks a structured generator for claims covering the
// missing side of a topic.
type GeneratorGapFiller struct {
	gen research.StructuredGenerator
}

func NewGeneratorGapFiller(gen research.StructuredGenerator) *GeneratorGapFiller {
	return &GeneratorGapFiller{gen: gen}
}

func (g *GeneratorGapFiller) MissingPerspectives(ctx context.Context, label string, missing research.Stance) ([]research.Claim, error) {
	var out struct {
		Claims []research.Claim `json:"claims"`
	}
	prompt := fmt.Sprintf("Find %s perspectives that are missing from coverage of: %s", missing, label)
	if err := g.gen.GenerateStructured(ctx, prompt, &out); err != nil {
		return nil, err
	}

	claims := make([]research.Claim, 0, len(out.Claims))
	for _, claim := range out.Claims {
		if strings.TrimSpace(claim.Text) == "" {
			continue
		}
		if claim.Stance == "" {
			claim.Stance = missing
		}
		claims = append(claims, claim)
	}
	return claims, nil
}
