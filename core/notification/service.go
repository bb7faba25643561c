package notification

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/material"
	"github.com/trezcool/kia/core/payment"
	"github.com/trezcool/kia/core/student"
	"github.com/trezcool/kia/core/subject"
	"github.com/trezcool/kia/core/user"
)

// Notification types, sent as the "type" data key.
const (
	TypeTest            = "test"
	TypePaymentReminder = "payment_reminder"
	TypeNewMaterial     = "new_material"
	TypeWelcome         = "welcome"
)

var ErrNoToken = errors.New("user has no FCM token registered")

const (
	defaultTestTitle = "Test Notification"
	defaultTestBody  = "This is a test notification from KIA Academy"
)

type (
	Service interface {
		// SendTest pushes a notification to usr's device; ErrNoToken when none is registered.
		SendTest(ctx context.Context, usr user.User, title, body string) (core.PushResult, error)
		// SendPaymentReminder reminds the student's parent of a payment.
		// It reports false when the parent has no device to notify.
		SendPaymentReminder(ctx context.Context, paymentID int) (bool, error)
		// SendNewMaterial notifies the parents of every student in the subject's class.
		SendNewMaterial(ctx context.Context, materialID int) (bool, error)
		SendWelcome(ctx context.Context, userID int) (bool, error)
		// SendDueReminders reminds parents of unpaid payments due within daysAhead days of day
		// and returns the number of reminders sent.
		SendDueReminders(ctx context.Context, day core.Date, daysAhead int) (int, error)
	}

	service struct {
		usrSvc  user.Service
		stSvc   student.Service
		subSvc  subject.Service
		matSvc  material.Service
		paySvc  payment.Service
		pushSvc core.PushService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	usrSvc user.Service,
	stSvc student.Service,
	subSvc subject.Service,
	matSvc material.Service,
	paySvc payment.Service,
	pushSvc core.PushService,
	logger core.Logger,
) Service {
	return &service{
		usrSvc:  usrSvc,
		stSvc:   stSvc,
		subSvc:  subSvc,
		matSvc:  matSvc,
		paySvc:  paySvc,
		pushSvc: pushSvc,
		logger:  logger,
	}
}

func (svc *service) SendTest(ctx context.Context, usr user.User, title, body string) (core.PushResult, error) {
	if usr.FCMToken == "" {
		return core.PushResult{}, ErrNoToken
	}
	if title = core.CleanString(title); title == "" {
		title = defaultTestTitle
	}
	if body = core.CleanString(body); body == "" {
		body = defaultTestBody
	}
	res, err := svc.pushSvc.Send(ctx, &core.PushMessage{
		Tokens: []string{usr.FCMToken},
		Title:  title,
		Body:   body,
		Data:   map[string]string{"type": TypeTest},
	})
	if err != nil {
		return core.PushResult{}, errors.Wrap(err, "sending test notification")
	}
	return res, nil
}

func (svc *service) SendPaymentReminder(ctx context.Context, paymentID int) (bool, error) {
	p, err := svc.paySvc.GetByID(ctx, paymentID)
	if err != nil {
		return false, err
	}
	st, err := svc.stSvc.GetByID(ctx, p.StudentID)
	if err != nil {
		return false, err
	}
	return svc.sendPaymentReminder(ctx, p, st)
}

func (svc *service) sendPaymentReminder(ctx context.Context, p payment.Payment, st student.Student) (bool, error) {
	parent, err := svc.usrSvc.GetByID(ctx, st.ParentID)
	if err != nil {
		return false, errors.Wrap(err, "finding parent")
	}
	if parent.FCMToken == "" {
		svc.logger.Info(fmt.Sprintf("no FCM token for parent of student %d", st.ID))
		return false, nil
	}

	amount := strconv.FormatFloat(p.Amount, 'f', -1, 64)
	res, err := svc.pushSvc.Send(ctx, &core.PushMessage{
		Tokens: []string{parent.FCMToken},
		Title:  "تذكير بالدفع - Payment Reminder",
		Body:   fmt.Sprintf("مستحق دفع %s ريال للطالب %s", amount, st.FullName),
		Data: map[string]string{
			"type":       TypePaymentReminder,
			"payment_id": strconv.Itoa(p.ID),
			"student_id": strconv.Itoa(st.ID),
			"amount":     amount,
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "sending payment reminder")
	}
	return res.SuccessCount > 0, nil
}

func (svc *service) SendNewMaterial(ctx context.Context, materialID int) (bool, error) {
	mat, err := svc.matSvc.GetByID(ctx, materialID)
	if err != nil {
		return false, err
	}
	sub, err := svc.subSvc.GetByID(ctx, mat.SubjectID)
	if err != nil {
		return false, err
	}

	students, err := svc.stSvc.Query(ctx, &student.QueryFilter{ClassID: sub.ClassID}, nil)
	if err != nil {
		return false, errors.Wrap(err, "querying class students")
	}
	seen := make(map[int]bool, len(students))
	parentIDs := make([]int, 0, len(students))
	for _, st := range students {
		if !seen[st.ParentID] {
			seen[st.ParentID] = true
			parentIDs = append(parentIDs, st.ParentID)
		}
	}
	if len(parentIDs) == 0 {
		svc.logger.Info(fmt.Sprintf("no parents found for class %d", sub.ClassID))
		return false, nil
	}

	parents, err := svc.usrSvc.Query(ctx, &user.QueryFilter{IDs: parentIDs, HasFCMToken: true}, nil)
	if err != nil {
		return false, errors.Wrap(err, "querying parents")
	}
	if len(parents) == 0 {
		svc.logger.Info(fmt.Sprintf("no parents with FCM tokens found for class %d", sub.ClassID))
		return false, nil
	}
	tokens := make([]string, 0, len(parents))
	for _, parent := range parents {
		tokens = append(tokens, parent.FCMToken)
	}

	res, err := svc.pushSvc.Send(ctx, &core.PushMessage{
		Tokens: tokens,
		Title:  "محتوى تعليمي جديد - New Material",
		Body:   fmt.Sprintf("تم إضافة محتوى جديد: %s في مادة %s", mat.Title, sub.Name),
		Data: map[string]string{
			"type":         TypeNewMaterial,
			"material_id":  strconv.Itoa(mat.ID),
			"subject_id":   strconv.Itoa(sub.ID),
			"subject_name": sub.Name,
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "sending new material notification")
	}
	if res.FailureCount > 0 {
		svc.logger.Warn(fmt.Sprintf("new material %d: %d notifications failed", mat.ID, res.FailureCount))
	}
	return res.SuccessCount > 0, nil
}

func (svc *service) SendWelcome(ctx context.Context, userID int) (bool, error) {
	usr, err := svc.usrSvc.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if usr.FCMToken == "" {
		return false, nil
	}
	res, err := svc.pushSvc.Send(ctx, &core.PushMessage{
		Tokens: []string{usr.FCMToken},
		Title:  "مرحباً بك في أكاديمية كيا - Welcome to KIA",
		Body:   fmt.Sprintf("أهلاً %s! نحن سعداء بانضمامك إلى أكاديمية كيا الدولية", usr.FullName),
		Data:   map[string]string{"type": TypeWelcome},
	})
	if err != nil {
		return false, errors.Wrap(err, "sending welcome notification")
	}
	return res.SuccessCount > 0, nil
}

func (svc *service) SendDueReminders(ctx context.Context, day core.Date, daysAhead int) (int, error) {
	if daysAhead < 0 {
		daysAhead = 0
	}
	payments, err := svc.paySvc.DueUntil(ctx, day.AddDays(daysAhead))
	if err != nil {
		return 0, errors.Wrap(err, "querying due payments")
	}

	var sent int
	students := make(map[int]student.Student)
	for _, p := range payments {
		st, ok := students[p.StudentID]
		if !ok {
			if st, err = svc.stSvc.GetByID(ctx, p.StudentID); err != nil {
				return sent, errors.Wrapf(err, "finding student %d", p.StudentID)
			}
			students[p.StudentID] = st
		}
		ok, err := svc.sendPaymentReminder(ctx, p, st)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("payment %d: reminder failed", p.ID), err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}
