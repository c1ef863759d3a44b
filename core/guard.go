package core

import (
	"fmt"
	"sort"
	"strings"
)

// RequiredSettings maps an external service name to the environment
// settings it cannot run without. New services add an entry here.
var RequiredSettings = map[string][]string{
	"SIGMAX": {
		EnvSigmaxAuthToken,
		EnvSigmaxServer,
	},
	"SIGNALS": {
		EnvSignalsUser,
		EnvSignalsPassword,
	},
}

// GuardReport lists every missing setting in one pass instead of failing on
// the first, so operators fix a deployment in a single round.
type GuardReport struct {
	OK      bool
	Missing []string
}

func (r GuardReport) Message() string {
	if r.OK {
		return "all required settings present"
	}
	return "missing required settings: " + strings.Join(r.Missing, ", ")
}

// ConfigGuard verifies that every service in the active list has its
// required environment settings set to non-empty values. It backs the
// health-check boundary; the delivery loop itself discovers a misconfigured
// service at delivery time via ErrServiceNotConfigured.
type ConfigGuard struct {
	Env      Env
	Active   []string
	Required map[string][]string
}

func NewConfigGuard(env Env, activeServices []string) ConfigGuard {
	return ConfigGuard{
		Env:      env,
		Active:   append([]string(nil), activeServices...),
		Required: RequiredSettings,
	}
}

func (g ConfigGuard) Check() GuardReport {
	required := g.Required
	if required == nil {
		required = RequiredSettings
	}

	active := make(map[string]struct{}, len(g.Active))
	for _, service := range g.Active {
		service = strings.TrimSpace(strings.ToUpper(service))
		if service == "" {
			continue
		}
		active[service] = struct{}{}
	}

	services := make([]string, 0, len(required))
	for service := range required {
		services = append(services, service)
	}
	sort.Strings(services)

	var missing []string
	for _, service := range services {
		if _, ok := active[service]; !ok {
			continue
		}
		for _, setting := range required[service] {
			if g.Env.Get(setting) == "" {
				missing = append(missing, fmt.Sprintf("%s (service %s)", setting, service))
			}
		}
	}

	return GuardReport{OK: len(missing) == 0, Missing: missing}
}
