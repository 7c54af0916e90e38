package service

import "github.com/noah-isme/changeboard-api/internal/models"

// NewClassifiedChange combines a raw row with its note classification. The show key is
// resolved here so grouping never has to look at the raw row again.
func NewClassifiedChange(rec models.RawChangeRecord, c Classification) models.ClassifiedChange {
	return models.ClassifiedChange{
		Show:       rec.ShowName(),
		OrderID:    rec.OrderID,
		Item:       c.Item,
		Verb:       c.Verb,
		ChangeBy:   rec.ChangeBy,
		EventDate:  rec.EventDate,
		Note:       rec.Note,
		PrepDate:   rec.BeginDate1,
		ReturnDate: rec.ReturnDate,
	}
}

// GroupByShow buckets changes by exact show name, keeping input order inside each bucket.
func GroupByShow(changes []models.ClassifiedChange) map[string][]models.ClassifiedChange {
	grouped := make(map[string][]models.ClassifiedChange)
	for _, change := range changes {
		grouped[change.Show] = append(grouped[change.Show], change)
	}
	return grouped
}
