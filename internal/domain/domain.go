package domain

import (
	"github.com/coachline/registration-backend/internal/domain/conversation"
	"github.com/coachline/registration-backend/internal/domain/registration"
)

type Organization = registration.Organization
type Location = registration.Location
type Coach = registration.Coach
type Program = registration.Program
type Session = registration.Session

type Conversation = conversation.Conversation
type ConversationState = conversation.State
type ConversationContext = conversation.Context
type DaySet = conversation.DaySet
type TimeOfDay = conversation.TimeOfDay
