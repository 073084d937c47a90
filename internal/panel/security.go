package panel

import (
	"context"
	"fmt"

	"userpanel/internal/model"
	"userpanel/internal/panel/apiclient"
	"userpanel/internal/panel/syncer"
)

// RevokeDevice removes an authorized device so it has to be approved again.
func (p *Panel) RevokeDevice(ctx context.Context, id string) (<-chan error, error) {
	if err := p.authorized(); err != nil {
		return nil, err
	}

	match := func(d model.AuthorizedDevice) bool { return d.ID == id }
	prev, ok := p.Devices.Find(match)
	if !ok {
		return nil, fmt.Errorf("%w: device %s", apiclient.ErrNotFound, id)
	}
	idx := indexWhere(p.Devices.Items(), match)

	return p.Devices.Submit(ctx, syncer.Command[model.AuthorizedDevice]{
		Name:    "revoke device " + prev.DeviceName,
		Success: "Device removed successfully",
		Apply: func(ds []model.AuthorizedDevice) []model.AuthorizedDevice {
			return removeWhere(ds, match)
		},
		Revert: func(ds []model.AuthorizedDevice) []model.AuthorizedDevice {
			return restoreAt(ds, idx, prev, match)
		},
		Remote: func(ctx context.Context) (model.AuthorizedDevice, error) {
			return model.AuthorizedDevice{}, p.api.DeleteDevice(ctx, id)
		},
	}), nil
}

func (p *Panel) MarkAlertRead(ctx context.Context, id string) (<-chan error, error) {
	if err := p.authorized(); err != nil {
		return nil, err
	}

	match := func(a model.SecurityAlert) bool { return a.ID == id }
	prev, ok := p.Alerts.Find(match)
	if !ok {
		return nil, fmt.Errorf("%w: alert %s", apiclient.ErrNotFound, id)
	}
	next := prev
	next.IsRead = true

	return p.Alerts.Submit(ctx, syncer.Command[model.SecurityAlert]{
		Name:    "mark alert read",
		Success: "Alert marked as read",
		Apply: func(as []model.SecurityAlert) []model.SecurityAlert {
			return replaceWhere(as, match, next)
		},
		Revert: func(as []model.SecurityAlert) []model.SecurityAlert {
			return replaceWhere(as, match, prev)
		},
		Remote: func(ctx context.Context) (model.SecurityAlert, error) {
			return p.api.MarkAlertRead(ctx, id)
		},
		Confirm: func(as []model.SecurityAlert, confirmed model.SecurityAlert) []model.SecurityAlert {
			return replaceWhere(as, match, confirmed)
		},
	}), nil
}

func (p *Panel) DismissAlert(ctx context.Context, id string) (<-chan error, error) {
	if err := p.authorized(); err != nil {
		return nil, err
	}

	match := func(a model.SecurityAlert) bool { return a.ID == id }
	prev, ok := p.Alerts.Find(match)
	if !ok {
		return nil, fmt.Errorf("%w: alert %s", apiclient.ErrNotFound, id)
	}
	idx := indexWhere(p.Alerts.Items(), match)

	return p.Alerts.Submit(ctx, syncer.Command[model.SecurityAlert]{
		Name:    "dismiss alert",
		Success: "Alert dismissed",
		Apply: func(as []model.SecurityAlert) []model.SecurityAlert {
			return removeWhere(as, match)
		},
		Revert: func(as []model.SecurityAlert) []model.SecurityAlert {
			return restoreAt(as, idx, prev, match)
		},
		Remote: func(ctx context.Context) (model.SecurityAlert, error) {
			return model.SecurityAlert{}, p.api.DeleteAlert(ctx, id)
		},
	}), nil
}
