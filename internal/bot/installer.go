package bot

import (
	"context"
	"fmt"
	"net/url"

	"github.com/officepulse/officepulse/internal/config"
	"github.com/officepulse/officepulse/internal/graph"
	"go.uber.org/zap"
)

// InstallResult reports the outcome of an install request.
type InstallResult string

const (
	InstallResultInstalled        InstallResult = "installed"
	InstallResultAlreadyInstalled InstallResult = "already_installed"
)

// Installer installs the survey Teams app for a user so the bot can message
// them proactively.
type Installer struct {
	client *graph.Client
	appID  string
	log    *zap.Logger
}

func NewInstaller(client *graph.Client, cfg config.Config, log *zap.Logger) *Installer {
	return &Installer{
		client: client,
		appID:  cfg.Graph.TeamsAppID,
		log:    log.Named("bot.installer"),
	}
}

// InstallForUser installs the app for upn. Installing twice is not an error.
func (i *Installer) InstallForUser(ctx context.Context, upn string) (InstallResult, error) {
	if i.appID == "" {
		return "", fmt.Errorf("no teams app id configured")
	}

	body := map[string]string{
		"teamsApp@odata.bind": fmt.Sprintf("%s/appCatalogs/teamsApps/%s", i.client.BaseURL(), i.appID),
	}
	installURL := fmt.Sprintf("%s/users/%s/teamwork/installedApps", i.client.BaseURL(), url.PathEscape(upn))
	if err := i.client.PostJSON(ctx, installURL, body, nil); err != nil {
		if graph.IsConflict(err) {
			return InstallResultAlreadyInstalled, nil
		}
		return "", fmt.Errorf("install app for %s: %w", upn, err)
	}

	i.log.Info("survey app installed", zap.String("upn", upn))
	return InstallResultInstalled, nil
}
