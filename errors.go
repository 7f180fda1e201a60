package sepadoc

import (
	"context"
	"fmt"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

var (
	ErrSettingNotFound = errors.New("setting not found", j.C("ERR_8a1f0c35d2e94b71"))
	ErrWrongVariant    = errors.New("value holds a different variant", j.C("ERR_52c6e0b9a73d18f4"))

	ErrAttributeNotFound = errors.New("record attribute not found", j.C("ERR_0d7b4e92c1a6f853"))

	ErrDatesNotSpecified     = errors.New("start and end dates not specified", j.C("ERR_c39e7a1042bd5f86"))
	ErrStartDateNotSpecified = errors.New("start date not specified", j.C("ERR_61f28d0b9ce4a37e"))
	ErrEndDateNotSpecified   = errors.New("end date not specified", j.C("ERR_e4a0b7c3156d92f8"))
	ErrInvalidDateRange      = errors.New("start date is after end date", j.C("ERR_9b3c51e8d7a024f6"))
	ErrSourceNotConfigured   = errors.New("record source query not configured", j.C("ERR_1c8f4a2e6b0d7593"))

	ErrInvalidTemplatePath       = errors.New("template folder is invalid", j.C("ERR_7e25b9d04a1c63f8"))
	ErrRequestTemplateNotDefined = errors.New("request template not defined", j.C("ERR_a4d1963e0f7b25c8"))
	ErrMissiveTemplateNotDefined = errors.New("missive template not defined", j.C("ERR_3f90c2a7e15b6d48"))
	ErrVoucherTemplateNotDefined = errors.New("voucher template not defined", j.C("ERR_d8e6071b4c3a92f5"))
	ErrOutputFolderNotDefined    = errors.New("output folder not defined", j.C("ERR_5b7a3e9c0d1f4826"))
	ErrDeliveryModeInvalid       = errors.New("delivery mode is invalid", j.C("ERR_0f6e8b2d9c47a153"))

	ErrRequestTemplateNotFound = errors.New("request template not found", j.C("ERR_26c4f8e1b07a9d35"))
	ErrMissiveTemplateNotFound = errors.New("missive template not found", j.C("ERR_b59d2e07c84f13a6"))
	ErrVoucherTemplateNotFound = errors.New("voucher template not found", j.C("ERR_8c03f5a6e1d27b94"))
	ErrColourProfileNotFound   = errors.New("colour profile not found", j.C("ERR_e71a4c9b3f086d25"))
	ErrFontNotFound            = errors.New("font not found", j.C("ERR_43b8d6f2a9e05c17"))
	ErrRenderFailed            = errors.New("document rendering failed", j.C("ERR_f2c9705e8b4a31d6"))
	ErrArchiveFailed           = errors.New("archive could not be written", j.C("ERR_69a2e3d8c5f0b147"))

	ErrSourceConnectivity = errors.New("record source unreachable", j.C("ERR_a0e7c64b2d9f5138"))
	ErrSourceCredentials  = errors.New("record source rejected credentials", j.C("ERR_17d5b3f9e0c2a864"))
	ErrSourceQuery        = errors.New("record source query failed", j.C("ERR_cb4f18a7650e3d92"))

	ErrDeliveryParameterNotDefined = errors.New("delivery parameter not defined", j.C("ERR_5e0a9d3c7b16f248"))
	ErrDeliveryConnectivity        = errors.New("delivery channel unreachable", j.C("ERR_98f3c2b0a6e4d715"))
	ErrDeliveryCredentials         = errors.New("delivery channel rejected credentials", j.C("ERR_3ad7e1f5c904b268"))
	ErrDeliveryFailed              = errors.New("document delivery failed", j.C("ERR_d1b6a08e4f73c952"))

	ErrNoRecords               = errors.New("working set is empty", j.C("ERR_72e9f4d1b8c305a6"))
	ErrNothingSelected         = errors.New("no record selected", j.C("ERR_0b5c8a3f6e2d1974"))
	ErrNothingToSend           = errors.New("no selected record has a generated document", j.C("ERR_f84d2b61c9a0e735"))
	ErrStageInProgress         = errors.New("a stage is still in progress - retry once complete", j.C("ERR_6c1e3a9f5d0b7248"))
	ErrInvalidStageTransition  = errors.New("invalid stage transition", j.C("ERR_b3f7d0e2a5c86914"))
	ErrRecordNotFound          = errors.New("record not found", j.C("ERR_4e8a1c7d3b96f025"))
	ErrArchiverNotConfigured   = errors.New("archive delivery requires an archiver", j.C("ERR_a9d5f3b7e1c04862"))
	ErrInvalidSchedule         = errors.New("invalid schedule", j.C("ERR_1f4b9e6c0a2d8375"))
	ErrNotificationUnavailable = errors.New("notification channel unavailable", j.C("ERR_e05c7b2a8d3f9146"))
)

// ErrorKind is the closed set of error classes a stage can surface.
type ErrorKind int

const (
	KindUnknown       ErrorKind = 0
	KindConfiguration ErrorKind = 1
	KindResource      ErrorKind = 2
	KindTransport     ErrorKind = 3
	KindAttribute     ErrorKind = 4
	KindCancelled     ErrorKind = 5
	KindPrecondition  ErrorKind = 6
	kindSentinel      ErrorKind = 7
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnknown:
		return "Unknown"
	case KindConfiguration:
		return "Configuration"
	case KindResource:
		return "Resource"
	case KindTransport:
		return "Transport"
	case KindAttribute:
		return "Attribute"
	case KindCancelled:
		return "Cancelled"
	case KindPrecondition:
		return "Precondition"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

func (k ErrorKind) Valid() bool {
	return k > KindUnknown && k < kindSentinel
}

// TransportClass refines KindTransport errors.
type TransportClass int

const (
	TransportClassNone         TransportClass = 0
	TransportClassGeneric      TransportClass = 1
	TransportClassConnectivity TransportClass = 2
	TransportClassCredentials  TransportClass = 3
)

func (c TransportClass) String() string {
	switch c {
	case TransportClassNone:
		return "None"
	case TransportClassGeneric:
		return "Generic"
	case TransportClassConnectivity:
		return "Connectivity"
	case TransportClassCredentials:
		return "Credentials"
	default:
		return fmt.Sprintf("TransportClass(%d)", c)
	}
}

type classified struct {
	err     error
	kind    ErrorKind
	class   TransportClass
	message string
}

// taxonomy is checked in order so the first sentinel found in the chain wins.
var taxonomy = []classified{
	{ErrDatesNotSpecified, KindConfiguration, TransportClassNone, "Please specify the start and end dates of the payment period."},
	{ErrStartDateNotSpecified, KindConfiguration, TransportClassNone, "Please specify the start date of the payment period."},
	{ErrEndDateNotSpecified, KindConfiguration, TransportClassNone, "Please specify the end date of the payment period."},
	{ErrInvalidDateRange, KindConfiguration, TransportClassNone, "The start date must be before the end date."},
	{ErrSourceNotConfigured, KindConfiguration, TransportClassNone, "The database query is not configured."},
	{ErrInvalidTemplatePath, KindConfiguration, TransportClassNone, "The template folder is not a valid folder."},
	{ErrRequestTemplateNotDefined, KindConfiguration, TransportClassNone, "The payment request template is not defined."},
	{ErrMissiveTemplateNotDefined, KindConfiguration, TransportClassNone, "The SEPAmail missive template is not defined."},
	{ErrVoucherTemplateNotDefined, KindConfiguration, TransportClassNone, "The delivery voucher template is not defined."},
	{ErrOutputFolderNotDefined, KindConfiguration, TransportClassNone, "The output folder is not defined."},
	{ErrDeliveryModeInvalid, KindConfiguration, TransportClassNone, "The delivery mode must be either direct or archive."},
	{ErrDeliveryParameterNotDefined, KindConfiguration, TransportClassNone, "A mail delivery parameter is not defined."},
	{ErrArchiverNotConfigured, KindConfiguration, TransportClassNone, "Archive delivery is selected but no archive folder is configured."},
	{ErrInvalidSchedule, KindConfiguration, TransportClassNone, "The schedule is not a valid cron expression."},
	{ErrSettingNotFound, KindConfiguration, TransportClassNone, "A required setting is missing from the configuration."},
	{ErrWrongVariant, KindConfiguration, TransportClassNone, "A setting has the wrong type in the configuration."},

	{ErrRequestTemplateNotFound, KindResource, TransportClassNone, "The payment request template file could not be found."},
	{ErrMissiveTemplateNotFound, KindResource, TransportClassNone, "The SEPAmail missive template file could not be found."},
	{ErrVoucherTemplateNotFound, KindResource, TransportClassNone, "The delivery voucher template file could not be found."},
	{ErrColourProfileNotFound, KindResource, TransportClassNone, "The colour profile could not be found."},
	{ErrFontNotFound, KindResource, TransportClassNone, "The document font could not be found."},
	{ErrRenderFailed, KindResource, TransportClassNone, "The document could not be rendered."},
	{ErrArchiveFailed, KindResource, TransportClassNone, "The archive could not be written."},

	{ErrSourceCredentials, KindTransport, TransportClassCredentials, "The database rejected the user name or password."},
	{ErrSourceConnectivity, KindTransport, TransportClassConnectivity, "The database could not be reached."},
	{ErrSourceQuery, KindTransport, TransportClassGeneric, "The database query failed."},
	{ErrDeliveryCredentials, KindTransport, TransportClassCredentials, "The mail server rejected the user name or password."},
	{ErrDeliveryConnectivity, KindTransport, TransportClassConnectivity, "The mail server could not be reached."},
	{ErrDeliveryFailed, KindTransport, TransportClassGeneric, "The document could not be delivered."},
	{ErrNotificationUnavailable, KindTransport, TransportClassConnectivity, "The notification channel could not be reached."},

	{ErrAttributeNotFound, KindAttribute, TransportClassNone, "A record is missing an attribute."},

	{ErrNoRecords, KindPrecondition, TransportClassNone, "There are no payment requests to process."},
	{ErrNothingSelected, KindPrecondition, TransportClassNone, "Please select at least one payment request."},
	{ErrNothingToSend, KindPrecondition, TransportClassNone, "No selected payment request has a generated document."},
	{ErrStageInProgress, KindPrecondition, TransportClassNone, "Please wait for the current operation to finish."},
	{ErrInvalidStageTransition, KindPrecondition, TransportClassNone, "The operation is not allowed in the current state."},
	{ErrRecordNotFound, KindPrecondition, TransportClassNone, "The payment request could not be found."},
}

const genericUserMessage = "An unexpected error occurred, please check the operational log."

func lookup(err error) (classified, bool) {
	if err == nil {
		return classified{}, false
	}

	if errors.Is(err, context.Canceled) {
		return classified{kind: KindCancelled, message: "The operation was cancelled."}, true
	}

	for _, c := range taxonomy {
		if errors.Is(err, c.err) {
			return c, true
		}
	}

	return classified{}, false
}

// KindOf classifies err against the known sentinels. Unclassified errors are KindUnknown.
func KindOf(err error) ErrorKind {
	c, ok := lookup(err)
	if !ok {
		return KindUnknown
	}

	return c.kind
}

// TransportClassOf returns the transport sub-class of err, or TransportClassNone for non transport errors.
func TransportClassOf(err error) TransportClass {
	c, ok := lookup(err)
	if !ok {
		return TransportClassNone
	}

	return c.class
}

// UserMessage returns the message shown to an operator for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	c, ok := lookup(err)
	if !ok {
		return genericUserMessage
	}

	return c.message
}
