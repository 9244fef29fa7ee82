package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/otp-auth/internal/logger"
	"github.com/ignatzorin/otp-auth/internal/metrics"
	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/pkg/apperror"
)

// ErrProviderNotConfigured возвращается в production, если провайдер канала не настроен.
var ErrProviderNotConfigured = errors.New("otp provider not configured")

// EmailSender внешний провайдер почты.
type EmailSender interface {
	Send(ctx context.Context, from, to, subject, text string) error
}

// Delivery одноразовый код, готовый к отправке.
type Delivery struct {
	Channel    models.Channel
	Identifier string
	Code       string
	Purpose    models.Purpose
	ExpiresAt  time.Time
}

// OTPDispatcher направляет код в канал доставки.
type OTPDispatcher struct {
	email      EmailSender
	from       string
	production bool
}

// NewOTPDispatcher создаёт диспетчер. email может быть nil, если почта не настроена.
func NewOTPDispatcher(email EmailSender, from string, production bool) *OTPDispatcher {
	return &OTPDispatcher{
		email:      email,
		from:       from,
		production: production,
	}
}

// SendOTP отправляет код. Телефонный канал пока только логируется.
func (d *OTPDispatcher) SendOTP(ctx context.Context, in Delivery) error {
	log := logger.Log.WithFields(logrus.Fields{
		"channel": in.Channel,
		"purpose": in.Purpose,
		"to":      logger.MaskIdentifier(in.Identifier),
	})

	switch in.Channel {
	case models.ChannelEmail:
		if d.email == nil {
			return d.notConfigured(log, in.Channel)
		}

		subject, text := composeEmail(in)
		if err := d.email.Send(ctx, d.from, in.Identifier, subject, text); err != nil {
			metrics.OTPDeliveries.WithLabelValues(string(in.Channel), metrics.ResultFailed).Inc()
			log.WithError(err).Error("otp: не удалось отправить письмо")
			return apperror.Internal(err, "не удалось отправить код")
		}

		metrics.OTPDeliveries.WithLabelValues(string(in.Channel), metrics.ResultOK).Inc()
		log.Info("otp: письмо отправлено")
		return nil

	case models.ChannelPhone:
		metrics.OTPDeliveries.WithLabelValues(string(in.Channel), metrics.ResultSkipped).Inc()
		log.Info("otp: доставка по телефону не подключена, код не отправлен")
		return nil

	default:
		return apperror.Internal(fmt.Errorf("unknown channel %q", in.Channel), "неизвестный канал доставки")
	}
}

func (d *OTPDispatcher) notConfigured(log *logrus.Entry, channel models.Channel) error {
	metrics.OTPDeliveries.WithLabelValues(string(channel), metrics.ResultSkipped).Inc()
	if d.production {
		log.Error("otp: провайдер доставки не настроен")
		return apperror.Internal(fmt.Errorf("%s: %w", channel, ErrProviderNotConfigured), "доставка кода недоступна")
	}
	log.Warn("otp: провайдер доставки не настроен, код не отправлен")
	return nil
}

// purposeTitles формы назначения для темы письма.
var purposeTitles = map[models.Purpose]string{
	models.PurposeSignup: "регистрации",
	models.PurposeLogin:  "входа",
	models.PurposeReset:  "сброса пароля",
}

func composeEmail(in Delivery) (string, string) {
	title, ok := purposeTitles[in.Purpose]
	if !ok {
		title = string(in.Purpose)
	}

	subject := "Код для " + title
	text := fmt.Sprintf(
		"Ваш код для %s: %s\nКод действует до %s.\nЕсли вы не запрашивали код, просто проигнорируйте это письмо.",
		title, in.Code, in.ExpiresAt.UTC().Format(time.RFC3339),
	)
	return subject, text
}
