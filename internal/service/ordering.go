package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/trinnux/gallery/internal/model"
	"github.com/trinnux/gallery/internal/repository"
)

// OrderingService owns the manual display order. A batch is written in one
// transaction or not at all.
type OrderingService struct {
	imageRepo repository.ImageRepository
}

func NewOrderingService(imageRepo repository.ImageRepository) *OrderingService {
	return &OrderingService{
		imageRepo: imageRepo,
	}
}

// Reorder applies a batch of position updates atomically. Ids are not
// checked for existence and positions may repeat or skip; clients send only
// the ids whose position changed.
func (s *OrderingService) Reorder(ctx context.Context, updates []model.PositionUpdate) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: reorder payload is empty", model.ErrValidation)
	}
	for i, u := range updates {
		if u.ID <= 0 {
			return fmt.Errorf("%w: order[%d]: invalid id %d", model.ErrValidation, i, u.ID)
		}
		if u.Position < model.MinPosition || u.Position > model.MaxPosition {
			return fmt.Errorf("%w: order[%d]: position %d out of range", model.ErrValidation, i, u.Position)
		}
	}

	err := s.imageRepo.UpdatePositions(ctx, updates)
	if err != nil {
		return err
	}

	slog.Info("gallery reordered", "count", len(updates))
	return nil
}

// ParseReorderPayload decodes a reorder request body. It accepts a bare
// array or an object holding the array under "order" or "updates". Each
// element needs integer "id" and "position" ("sort_order" is an alias).
func ParseReorderPayload(body []byte) ([]model.PositionUpdate, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty request body", model.ErrValidation)
	}

	var items []map[string]json.RawMessage
	switch body[0] {
	case '[':
		err := json.Unmarshal(body, &items)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid reorder payload: %v", model.ErrValidation, err)
		}
	case '{':
		var wrapper map[string]json.RawMessage
		err := json.Unmarshal(body, &wrapper)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid reorder payload: %v", model.ErrValidation, err)
		}
		raw, ok := wrapper["order"]
		if !ok {
			raw, ok = wrapper["updates"]
		}
		if !ok {
			return nil, fmt.Errorf("%w: reorder payload needs an \"order\" array", model.ErrValidation)
		}
		err = json.Unmarshal(raw, &items)
		if err != nil {
			return nil, fmt.Errorf("%w: \"order\" must be an array of objects: %v", model.ErrValidation, err)
		}
	default:
		return nil, fmt.Errorf("%w: reorder payload must be a JSON array or object", model.ErrValidation)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: reorder payload is empty", model.ErrValidation)
	}

	updates := make([]model.PositionUpdate, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: order[%d] is not an object", model.ErrValidation, i)
		}

		id, err := integerField(item, "id")
		if err != nil {
			return nil, fmt.Errorf("%w: order[%d]: %v", model.ErrValidation, i, err)
		}

		positionKey := "position"
		if _, ok := item[positionKey]; !ok {
			positionKey = "sort_order"
		}
		position, err := integerField(item, positionKey)
		if err != nil {
			return nil, fmt.Errorf("%w: order[%d]: %v", model.ErrValidation, i, err)
		}
		if position < model.MinPosition || position > model.MaxPosition {
			return nil, fmt.Errorf("%w: order[%d]: position out of range", model.ErrValidation, i)
		}

		updates = append(updates, model.PositionUpdate{ID: id, Position: int(position)})
	}

	return updates, nil
}

// integerField reads a JSON number without a fractional part or exponent.
// Strings, booleans and null are rejected.
func integerField(item map[string]json.RawMessage, key string) (int64, error) {
	raw, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return 0, fmt.Errorf("%q: %v", key, err)
	}
	number, ok := value.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%q must be an integer", key)
	}

	n, err := strconv.ParseInt(number.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q must be an integer, got %s", key, number)
	}
	return n, nil
}
