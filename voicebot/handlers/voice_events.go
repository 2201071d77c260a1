package handlers

import (
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
)

// Dispatcher receives voice notifications in gateway order.
type Dispatcher interface {
	Dispatch(ev rooms.Event)
}

// VoiceListener feeds gateway voice and channel events to d.
func VoiceListener(d Dispatcher) bot.EventListener {
	return &events.ListenerAdapter{
		OnGuildVoiceJoin: func(e *events.GuildVoiceJoin) {
			dispatchAll(d, voiceTransition(nil, e.VoiceState, time.Now()))
		},
		OnGuildVoiceMove: func(e *events.GuildVoiceMove) {
			dispatchAll(d, voiceTransition(&e.OldVoiceState, e.VoiceState, time.Now()))
		},
		OnGuildVoiceLeave: func(e *events.GuildVoiceLeave) {
			dispatchAll(d, voiceTransition(&e.OldVoiceState, e.VoiceState, time.Now()))
		},
		OnGuildChannelDelete: func(e *events.GuildChannelDelete) {
			d.Dispatch(rooms.ChannelDeleted{GuildID: e.GuildID, ChannelID: e.ChannelID, At: time.Now()})
		},
	}
}

func dispatchAll(d Dispatcher, evs []rooms.Event) {
	for _, ev := range evs {
		d.Dispatch(ev)
	}
}

// voiceTransition turns a voice state change into a leave of the old channel
// followed by a join of the new one. Mute and deafen updates produce nothing.
func voiceTransition(old *discord.VoiceState, cur discord.VoiceState, at time.Time) []rooms.Event {
	var from, to snowflake.ID
	if old != nil && old.ChannelID != nil {
		from = *old.ChannelID
	}
	if cur.ChannelID != nil {
		to = *cur.ChannelID
	}
	if from == to {
		return nil
	}

	var evs []rooms.Event
	if from != 0 {
		evs = append(evs, rooms.VoiceLeft{GuildID: cur.GuildID, ChannelID: from, UserID: cur.UserID, At: at})
	}
	if to != 0 {
		evs = append(evs, rooms.VoiceJoined{GuildID: cur.GuildID, ChannelID: to, UserID: cur.UserID, At: at})
	}
	return evs
}
