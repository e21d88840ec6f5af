// Package reconcile drives VLAN reconciliation across devices: fetch the
// running configuration, build the changeset and, in apply mode, push and
// save it.
//
// Simulate is the default. Nothing reaches a device unless the Reconciler
// is created WithMode(Apply).
package reconcile

import (
	"context"
	"os"
	"os/user"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/newtron-network/vlanshift/pkg/audit"
	"github.com/newtron-network/vlanshift/pkg/changeset"
	"github.com/newtron-network/vlanshift/pkg/config"
	"github.com/newtron-network/vlanshift/pkg/device"
	"github.com/newtron-network/vlanshift/pkg/inventory"
	"github.com/newtron-network/vlanshift/pkg/mapping"
	"github.com/newtron-network/vlanshift/pkg/metrics"
	"github.com/newtron-network/vlanshift/pkg/util"
)

// Mode selects whether changesets are pushed.
type Mode string

const (
	Simulate Mode = "simulate"
	Apply    Mode = "apply"
)

// Stages reported in util.DeviceError.
const (
	StageDispatch = "dispatch"
	StageConnect  = "connect"
	StageFetch    = "fetch running-config"
	StageApply    = "apply"
	StageSave     = "save"
)

// Reconciler holds the rules and collaborators for a run. It is safe for
// concurrent use; the rule list is never modified.
type Reconciler struct {
	dialer  device.Dialer
	rules   []mapping.Rule
	mode    Mode
	workers int
	auditor audit.Logger
	metrics *metrics.Recorder
	user    string
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMode sets Simulate or Apply.
func WithMode(m Mode) Option {
	return func(r *Reconciler) { r.mode = m }
}

// WithWorkers bounds how many devices are processed at once.
func WithWorkers(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithAuditor records one event per device.
func WithAuditor(l audit.Logger) Option {
	return func(r *Reconciler) { r.auditor = l }
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithUser names the operator in audit events.
func WithUser(name string) Option {
	return func(r *Reconciler) { r.user = name }
}

// New creates a Reconciler. Defaults: Simulate, one worker.
func New(dialer device.Dialer, rules []mapping.Rule, opts ...Option) *Reconciler {
	r := &Reconciler{
		dialer:  dialer,
		rules:   rules,
		mode:    Simulate,
		workers: 1,
		user:    currentUser(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode returns the run mode.
func (r *Reconciler) Mode() Mode {
	return r.mode
}

// DeviceReport is the outcome for one device.
type DeviceReport struct {
	Device    inventory.Device     `json:"device"`
	Hostname  string               `json:"hostname,omitempty"`
	Decisions []changeset.Decision `json:"decisions"`
	Changeset *changeset.Changeset `json:"changeset"`
	Applied   bool                 `json:"applied"`
	Saved     bool                 `json:"saved"`
	Err       error                `json:"-"`
	Error     string               `json:"error,omitempty"`
	Duration  time.Duration        `json:"duration"`

	// Before and After are the touched interface blocks as configured and
	// as projected after the changeset.
	Before []string `json:"before,omitempty"`
	After  []string `json:"after,omitempty"`

	// Output is the device transcript of the apply and save steps.
	Output string `json:"output,omitempty"`
}

// Failed reports whether the device could not be reconciled.
func (d *DeviceReport) Failed() bool {
	return d.Err != nil
}

// RunReport is the outcome of a run, with devices in inventory order.
type RunReport struct {
	ID       string          `json:"id"`
	Mode     Mode            `json:"mode"`
	Started  time.Time       `json:"started"`
	Duration time.Duration   `json:"duration"`
	Devices  []*DeviceReport `json:"devices"`
}

// Failed returns the devices that could not be reconciled.
func (r *RunReport) Failed() []*DeviceReport {
	var failed []*DeviceReport
	for _, d := range r.Devices {
		if d.Failed() {
			failed = append(failed, d)
		}
	}
	return failed
}

// TotalCommands sums the changeset lengths of all devices.
func (r *RunReport) TotalCommands() int {
	n := 0
	for _, d := range r.Devices {
		n += d.Changeset.Len()
	}
	return n
}

// Run reconciles every device with at most the configured number of
// workers. A device failure never stops the others. Once ctx is done the
// remaining devices are reported as failed without being contacted.
func (r *Reconciler) Run(ctx context.Context, devices []inventory.Device) *RunReport {
	report := &RunReport{
		ID:      uuid.NewString(),
		Mode:    r.mode,
		Started: time.Now(),
		Devices: make([]*DeviceReport, len(devices)),
	}
	util.WithField("run", report.ID).Infof("Starting %s run over %d devices with %d workers",
		r.mode, len(devices), r.workers)

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, dev := range devices {
		g.Go(func() error {
			report.Devices[i] = r.device(ctx, dev, report.ID)
			return nil
		})
	}
	g.Wait()

	report.Duration = time.Since(report.Started)
	if r.metrics != nil {
		r.metrics.Finish(time.Now())
	}
	return report
}

// Device reconciles a single device outside of a run.
func (r *Reconciler) Device(ctx context.Context, dev inventory.Device) *DeviceReport {
	return r.device(ctx, dev, "")
}

func (r *Reconciler) device(ctx context.Context, dev inventory.Device, runID string) *DeviceReport {
	start := time.Now()
	rep := &DeviceReport{
		Device:    dev,
		Decisions: []changeset.Decision{},
		Changeset: changeset.New(),
	}
	log := util.WithDevice(dev.Label()).WithField("host", dev.Host)

	if err := r.reconcile(ctx, dev, rep, log); err != nil {
		rep.Err = err
		rep.Error = err.Error()
		log.Errorf("Reconciliation failed: %v", err)
	}
	rep.Duration = time.Since(start)

	r.record(rep, runID, log)
	return rep
}

func (r *Reconciler) reconcile(ctx context.Context, dev inventory.Device, rep *DeviceReport, log *logrus.Entry) error {
	label := dev.Label()
	if err := ctx.Err(); err != nil {
		return util.NewDeviceError(label, StageDispatch, err)
	}

	log.Infof("Checking device %s with IP address %s", label, dev.Host)
	sess, err := r.dialer.Dial(ctx, dev)
	if err != nil {
		return util.NewDeviceError(label, StageConnect, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warnf("Disconnect: %v", err)
		}
	}()

	running, err := sess.RunningConfig(ctx)
	if err != nil {
		return util.NewDeviceError(label, StageFetch, err)
	}

	tree := config.ParseText(running)
	rep.Hostname, _ = tree.Hostname()
	res := changeset.Build(tree, r.rules)
	rep.Decisions = res.Decisions
	rep.Changeset = res.Changeset
	rep.Before, rep.After = changeset.Preview(tree, res)

	for _, d := range res.Warnings() {
		log.Warn(d.Message())
	}

	if res.Changeset.IsEmpty() {
		log.Info("No changes for this device")
		return nil
	}
	if r.mode != Apply {
		log.Infof("Simulated %d commands", res.Changeset.Len())
		return nil
	}

	out, err := sess.SendConfigSet(ctx, res.Changeset.Commands)
	rep.Output = out
	if err != nil {
		return util.NewDeviceError(label, StageApply, err)
	}
	rep.Applied = true

	out, err = sess.SaveConfig(ctx)
	rep.Output += out
	if err != nil {
		return util.NewDeviceError(label, StageSave, err)
	}
	rep.Saved = true
	log.Infof("Applied and saved %d commands", res.Changeset.Len())
	return nil
}

func (r *Reconciler) record(rep *DeviceReport, runID string, log *logrus.Entry) {
	if r.metrics != nil {
		r.metrics.ObserveDevice(rep.Decisions, rep.Changeset.Len(), rep.Duration, rep.Err)
	}
	if r.auditor == nil {
		return
	}

	op := audit.EventTypeSimulate
	if r.mode == Apply {
		op = audit.EventTypeApply
	}
	event := audit.NewEvent(r.user, rep.Device.Label(), op).
		WithRun(runID).
		WithHost(rep.Device.Host, rep.Hostname).
		WithCommands(rep.Changeset.Commands).
		WithDecisions(rep.Decisions).
		WithExecuteMode(r.mode == Apply).
		WithSaved(rep.Saved).
		WithDuration(rep.Duration)
	if rep.Err != nil {
		event.WithError(rep.Err)
	} else {
		event.WithSuccess()
	}
	if err := r.auditor.Log(event); err != nil {
		log.Warnf("Audit: %v", err)
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
