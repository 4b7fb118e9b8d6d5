package usecase

import (
	"fmt"
	"strings"

	"echotarot/internal/domain"
)

const (
	promptQuestion         = "Please tell me your question. Start recording when you are ready, or skip this step."
	promptQuestionSaved    = "Your question has been recorded."
	promptQuestionSkipped  = "Question skipped."
	promptHashtags         = "Choose hashtags for this reading, or skip."
	promptHashtagsSkipped  = "Hashtags skipped."
	promptReadingRecording = "Share your reflection on this reading. Start recording when you are ready, or skip."
	promptSaved            = "Your reading has been saved."
	promptSaveFailed       = "The reading could not be saved. You can try saving again."
	promptCancelled        = "Reading cancelled."
	promptPermission       = "Microphone access is needed to record. Please allow it in your system settings, or skip this step."
	promptRecordingFailed  = "Recording could not be completed. You can try again or skip this step."
)

func promptHashtagsChosen(tags []string) string {
	if len(tags) == 1 {
		return fmt.Sprintf("Hashtag %s selected.", tags[0])
	}
	return fmt.Sprintf("%d hashtags selected.", len(tags))
}

func promptSpreadSelected(spread domain.Spread) string {
	return fmt.Sprintf("%s selected. %s", spread.DisplayName(), spread.Description())
}

func positionName(spread domain.Spread, index int) string {
	names := spread.PositionNames()
	if index < len(names) {
		return names[index]
	}
	return fmt.Sprintf("Card %d", index+1)
}

func promptCardDrawn(spread domain.Spread, index int, card domain.DrawnCard) string {
	return fmt.Sprintf("%s: %s, %s.", positionName(spread, index), card.Card.Name, card.Orientation())
}

func promptMeaning(spread domain.Spread, index int, card domain.DrawnCard, meaning string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s, %s.", positionName(spread, index), card.Card.Name, card.Orientation())
	if meaning != "" {
		fmt.Fprintf(&b, " %s.", meaning)
	}
	return b.String()
}
