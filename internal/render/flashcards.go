package render

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"instructorcopilot/internal/clients/gemini"
	"instructorcopilot/internal/logger"
	"instructorcopilot/internal/prompt"
	"instructorcopilot/internal/utils"
)

const (
	cardWidth  = 800
	cardHeight = 500
)

// Flashcard is the card schema the model is asked to emit.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Week  string `json:"week"`
	Topic string `json:"topic"`
}

// FlashcardsRenderer turns model-produced card data into front/back PNG
// images plus an index text file. Cards that fail to draw are reported
// individually; the rest still render.
type FlashcardsRenderer struct {
	client   gemini.Client
	log      *logger.Logger
	fontFace font.Face
	fontErr  error
}

func NewFlashcardsRenderer(client gemini.Client, baseLog *logger.Logger) *FlashcardsRenderer {
	r := &FlashcardsRenderer{client: client, log: baseLog.With("renderer", CategoryFlashcards)}
	if fontPath := utils.GetEnv("FLASHCARD_FONT", "", baseLog); fontPath != "" {
		face, err := loadFontFace(fontPath, 28)
		if err != nil {
			r.fontErr = err
			r.log.Warn("Could not load flashcard font, falling back to built-in face", "error", err)
		} else {
			r.fontFace = face
		}
	}
	return r
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}

func (r *FlashcardsRenderer) Category() string { return CategoryFlashcards }

func (r *FlashcardsRenderer) Render(ctx context.Context, doc Document, dir string) ([]Artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", CategoryFlashcards, err)
	}

	cards := r.generateCards(ctx, doc)
	var artifacts []Artifact

	var index strings.Builder
	fmt.Fprintf(&index, "Flashcards for %s\n\n", doc.CourseTitle)

	for i, card := range cards {
		if ctx.Err() != nil {
			return artifacts, ctx.Err()
		}
		fmt.Fprintf(&index, "%d. [%s] %s -> %s\n", i+1, card.Week, card.Front, card.Back)

		for _, side := range []struct {
			suffix string
			text   string
			bg     color.Color
		}{
			{"front", card.Front, color.RGBA{R: 0x1e, G: 0x3a, B: 0x5f, A: 0xff}},
			{"back", card.Back, color.RGBA{R: 0x2d, G: 0x5f, B: 0x3a, A: 0xff}},
		} {
			filename := fmt.Sprintf("%s_Card_%02d_%s.png", doc.CourseSlug, i+1, side.suffix)
			art := Artifact{Category: CategoryFlashcards, Filename: filename}
			if err := r.drawCard(filepath.Join(dir, filename), card, side.text, side.bg); err != nil {
				art.Error = err.Error()
				r.log.Error("Failed to draw flashcard", "card", i+1, "side", side.suffix, "error", err)
			} else {
				art.OK = true
			}
			artifacts = append(artifacts, art)
		}
	}

	indexName := fmt.Sprintf("%s_Flashcards.txt", doc.CourseSlug)
	indexArt := Artifact{Category: CategoryFlashcards, Filename: indexName}
	if err := os.WriteFile(filepath.Join(dir, indexName), []byte(index.String()), 0o644); err != nil {
		indexArt.Error = err.Error()
	} else {
		indexArt.OK = true
	}
	artifacts = append(artifacts, indexArt)
	return artifacts, nil
}

func (r *FlashcardsRenderer) drawCard(path string, card Flashcard, text string, bg color.Color) error {
	dc := gg.NewContext(cardWidth, cardHeight)

	dc.SetColor(bg)
	dc.DrawRoundedRectangle(0, 0, cardWidth, cardHeight, 24)
	dc.Fill()

	if r.fontFace != nil {
		dc.SetFontFace(r.fontFace)
	}

	dc.SetColor(color.White)
	dc.DrawStringWrapped(text, cardWidth/2, cardHeight/2, 0.5, 0.5, cardWidth-80, 1.5, gg.AlignCenter)

	// Corner labels: week and topic.
	dc.SetColor(color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xb0})
	if card.Week != "" {
		dc.DrawString(card.Week, 24, 36)
	}
	if card.Topic != "" {
		tw, _ := dc.MeasureString(card.Topic)
		dc.DrawString(card.Topic, cardWidth-tw-24, 36)
	}

	return dc.SavePNG(path)
}

func (r *FlashcardsRenderer) generateCards(ctx context.Context, doc Document) []Flashcard {
	if r.client != nil {
		res, err := r.client.Generate(ctx, gemini.GenerateRequest{
			System:   prompt.Flashcards(doc.CourseTitle, doc.Difficulty, len(doc.Weeks)),
			Contents: []string{weekDigest(doc)},
		})
		if err == nil {
			if cards := ParseFlashcards(res.Text); len(cards) > 0 {
				return cards
			}
			r.log.Warn("Flashcard output had no parseable cards, using fallback")
		} else {
			r.log.Warn("Flashcard generation failed, using fallback", "error", err)
		}
	}
	return fallbackCards(doc)
}

var (
	reJSONArray   = regexp.MustCompile(`(?s)\[.*\]`)
	reLineComment = regexp.MustCompile(`(?m)^\s*//[^\n]*$`)
)

// ParseFlashcards pulls the first JSON array out of model output. Code
// fences and stray line comments are stripped before a second decode
// attempt, since models add both.
func ParseFlashcards(text string) []Flashcard {
	raw := reJSONArray.FindString(text)
	if raw == "" {
		return nil
	}
	var cards []Flashcard
	if err := json.Unmarshal([]byte(raw), &cards); err != nil {
		cleaned := reLineComment.ReplaceAllString(raw, "")
		cleaned = strings.ReplaceAll(cleaned, "```json", "")
		cleaned = strings.ReplaceAll(cleaned, "```", "")
		if err := json.Unmarshal([]byte(cleaned), &cards); err != nil {
			return nil
		}
	}
	valid := cards[:0]
	for _, c := range cards {
		if strings.TrimSpace(c.Front) == "" || strings.TrimSpace(c.Back) == "" {
			continue
		}
		valid = append(valid, c)
	}
	return valid
}

// fallbackCards derives simple term cards from the week titles so the
// category is never empty.
func fallbackCards(doc Document) []Flashcard {
	var cards []Flashcard
	for _, w := range doc.Weeks {
		cards = append(cards, Flashcard{
			Front: fmt.Sprintf("What is covered in Week %d?", w.Number),
			Back:  w.Title,
			Week:  fmt.Sprintf("Week %d", w.Number),
			Topic: w.Title,
		})
	}
	return cards
}
