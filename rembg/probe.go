package rembg

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	nhttp "github.com/chaos-io/idphoto/util/http"
)

const (
	MethodBiRefNet = "birefnet"
	MethodNone     = "none"

	QualityHigh = "HIGH (AI)"
	QualityLow  = "LOW"
)

// Probe 周期探测推理后端是否可用，/health 据此上报 method
type Probe struct {
	baseURL string
	cli     nhttp.IClient
	cron    *cron.Cron

	mu        sync.RWMutex
	available bool
}

func NewProbe(baseURL string) *Probe {
	return &Probe{
		baseURL: ensureSlash(baseURL),
		cli:     nhttp.NewHTTPClient(),
		cron:    cron.New(),
	}
}

// Start 立即探测一次，之后按 interval 周期探测
func (p *Probe) Start(interval time.Duration) error {
	p.check()
	spec := "@every " + interval.String()
	if _, err := p.cron.AddFunc(spec, p.check); err != nil {
		return err
	}
	p.cron.Start()
	return nil
}

func (p *Probe) Stop() {
	p.cron.Stop()
}

// Available 返回最近一次探测结果
func (p *Probe) Available() bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.available
}

// Method 上报当前生效的抠图方式
func (p *Probe) Method() string {
	if p.Available() {
		return MethodBiRefNet
	}
	return MethodNone
}

// Quality 上报与抠图方式对应的质量档位
func (p *Probe) Quality() string {
	if p.Available() {
		return QualityHigh
	}
	return QualityLow
}

func (p *Probe) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.cli.DoHTTPRequest(ctx, &nhttp.RequestParam{
		RequestURI: p.baseURL,
		Method:     "GET",
	})

	p.mu.Lock()
	wasAvailable := p.available
	p.available = err == nil
	p.mu.Unlock()

	if err != nil && wasAvailable {
		logrus.WithError(err).Warn("segmentation backend became unavailable")
	} else if err == nil && !wasAvailable {
		logrus.WithField("base_url", p.baseURL).Info("segmentation backend available")
	}
}
