package weather

import (
	"errors"
	"fmt"

	"dashboard/providers"
)

// Kind категория ошибки получения погоды
type Kind int

const (
	KindUpstream Kind = iota
	KindOffline
	KindNotFound
	KindServiceUnreachable
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindOffline:
		return "offline"
	case KindNotFound:
		return "not_found"
	case KindServiceUnreachable:
		return "service_unreachable"
	case KindBusy:
		return "busy"
	default:
		return "upstream"
	}
}

// Сообщения для пользователя
const (
	msgOffline     = "Нет подключения к сети, а в кеше нет данных для этого города."
	msgNotFound    = "Город не найден. Проверьте название и попробуйте снова."
	msgUnreachable = "Сервис погоды недоступен. Проверьте подключение к сети."
	msgUpstream    = "Не удалось получить данные о погоде. Попробуйте позже."
	msgBusy        = "Запрос погоды уже выполняется."
)

// ErrBusy параллельный Fetch на том же клиенте
var ErrBusy = &FetchError{Kind: KindBusy, Message: msgBusy}

// FetchError ошибка Fetch; Message показывается пользователю вместо результата
type FetchError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по категории, чтобы работал errors.Is(err, ErrBusy)
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	return ok && t.Kind == e.Kind && t.Err == nil
}

// classify переводит ошибку провайдера в FetchError
func classify(err error) *FetchError {
	switch {
	case errors.Is(err, providers.ErrCityNotFound):
		return &FetchError{Kind: KindNotFound, Message: msgNotFound, Err: err}
	case errors.Is(err, providers.ErrTransport):
		return &FetchError{Kind: KindServiceUnreachable, Message: msgUnreachable, Err: err}
	}

	return &FetchError{Kind: KindUpstream, Message: upstreamMessage(err), Err: err}
}

// upstreamMessage текст ошибки сервиса для пользователя; общий текст, если сервис ничего не сообщил
func upstreamMessage(err error) string {
	var statusErr *providers.StatusError
	var apiErr *providers.APIError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.Body != "" {
			return fmt.Sprintf("Сервис погоды вернул ошибку (HTTP %d): %s", statusErr.StatusCode, statusErr.Body)
		}
		return fmt.Sprintf("Сервис погоды вернул ошибку (HTTP %d).", statusErr.StatusCode)
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Сервис погоды вернул ошибку (код %s).", apiErr.Code)
	case err != nil && err.Error() != "":
		return "Ошибка сервиса погоды: " + err.Error()
	}
	return msgUpstream
}
