package web

import (
	"context"

	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/common/constant"
	"github.com/isoflow/clinicorder/pkg/core/clinic"
	clinicImpl "github.com/isoflow/clinicorder/pkg/core/clinic/clinic"
	"github.com/isoflow/clinicorder/pkg/core/notification"
	notificationImpl "github.com/isoflow/clinicorder/pkg/core/notification/notification"
	"github.com/isoflow/clinicorder/pkg/core/notify"
	"github.com/isoflow/clinicorder/pkg/core/notify/events"
	"github.com/isoflow/clinicorder/pkg/core/order"
	orderImpl "github.com/isoflow/clinicorder/pkg/core/order/order"
	"github.com/isoflow/clinicorder/pkg/core/reactor"
	reactorImpl "github.com/isoflow/clinicorder/pkg/core/reactor/reactor"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/cache"
	clinicRepo "github.com/isoflow/clinicorder/pkg/repo/clinic"
	notificationRepo "github.com/isoflow/clinicorder/pkg/repo/notification"
	"github.com/isoflow/clinicorder/pkg/repo/oauth"
	orderRepo "github.com/isoflow/clinicorder/pkg/repo/order"
	"github.com/isoflow/clinicorder/pkg/repo/queue"
	reactorRepo "github.com/isoflow/clinicorder/pkg/repo/reactor"
	"github.com/olahol/melody"
)

// Repos is the storage and transport the services run on.
type Repos struct {
	Reactors      repo.ReactorRepo
	Orders        repo.OrderRepo
	Clinics       repo.ClinicRepo
	Notifications repo.NotificationRepo
	Cache         repo.CalendarCache
	MailQueue     repo.MailQueue
	MsgCenter     notify.MsgCenter
	Account       repo.Account
}

type Services struct {
	Reactor      reactor.Service
	Order        order.Service
	Clinic       clinic.Service
	Notification notification.Service
	Account      repo.Account
	WS           *melody.Melody
}

// DefaultRepos binds postgres, redis and the identity provider from the
// global config. Postgres and redis must be initialized first.
func DefaultRepos() *Repos {
	conf := config.Global()
	return &Repos{
		Reactors:      reactorRepo.New(),
		Orders:        orderRepo.New(),
		Clinics:       clinicRepo.New(),
		Notifications: notificationRepo.New(),
		Cache:         cache.NewCalendar(conf.Job.CalendarKeyBase),
		MailQueue:     queue.NewMail(conf.Job.MailQueueName),
		MsgCenter:     events.NewEvents(),
		Account:       oauth.New(),
	}
}

func NewServices(ctx context.Context, repos *Repos, adminRole string) *Services {
	ws := melody.New()
	ws.Config.MaxMessageSize = constant.MaxMessageSize
	nSvc := notificationImpl.New(ctx, repos.Notifications, repos.Clinics, repos.MsgCenter, ws,
		notificationImpl.WithMailQueue(repos.MailQueue))
	return &Services{
		Reactor: reactorImpl.New(repos.Reactors, repos.Orders, repos.Cache),
		Order: orderImpl.New(repos.Reactors, repos.Orders, repos.Clinics,
			orderImpl.WithCache(repos.Cache),
			orderImpl.WithNotifier(nSvc)),
		Clinic:       clinicImpl.New(repos.Clinics, adminRole),
		Notification: nSvc,
		Account:      repos.Account,
		WS:           ws,
	}
}
