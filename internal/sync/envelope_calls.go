package sync

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/backend"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

func getEnvelope(ctx context.Context, c caller, folder, id string) (model.Envelope, error) {
	var env model.Envelope
	err := c.Call(backend.FeatureGetEnvelope, func(impl any) error {
		f, ok := impl.(backend.GetEnvelope)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeatureGetEnvelope))
		}
		var err error
		env, err = f.GetEnvelope(ctx, folder, model.SingleID(id))
		return err
	})
	return env, err
}

func peekMessage(ctx context.Context, c caller, folder, id string) ([]byte, error) {
	var raw []byte
	err := c.Call(backend.FeaturePeekMessages, func(impl any) error {
		f, ok := impl.(backend.PeekMessages)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeaturePeekMessages))
		}
		msgs, err := f.PeekMessages(ctx, folder, model.SingleID(id))
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return mailerr.New(mailerr.KindProtocol, "peek returned no message for id "+id)
		}
		raw = msgs[0].Raw
		return nil
	})
	return raw, err
}

func addMessage(ctx context.Context, c caller, folder string, raw []byte, flags model.FlagSet) (string, error) {
	var id model.ID
	err := c.Call(backend.FeatureAddMessage, func(impl any) error {
		f, ok := impl.(backend.AddMessage)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeatureAddMessage))
		}
		var err error
		id, err = f.AddMessage(ctx, folder, raw, flags)
		return err
	})
	if err != nil {
		return "", err
	}
	v, _ := id.Single()
	return v, nil
}

func setFlags(ctx context.Context, c caller, folder, id string, flags model.FlagSet) error {
	return c.Call(backend.FeatureSetFlags, func(impl any) error {
		f, ok := impl.(backend.SetFlags)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeatureSetFlags))
		}
		return f.SetFlags(ctx, folder, model.SingleID(id), flags)
	})
}

func deleteMessage(ctx context.Context, c caller, folder, id string) error {
	return c.Call(backend.FeatureDeleteMessages, func(impl any) error {
		f, ok := impl.(backend.DeleteMessages)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeatureDeleteMessages))
		}
		return f.DeleteMessages(ctx, folder, model.SingleID(id))
	})
}
