package process

import (
	"context"

	"go.uber.org/zap"

	"github.com/johnquangdev/holo-archive/internal/infrastructure/external/holodex"
	"github.com/johnquangdev/holo-archive/internal/storage"
)

// RefreshOrg pulls every channel of an organization from the metadata service
// and refreshes their channel records and video listings.
func (s *Service) RefreshOrg(ctx context.Context, org string) error {
	channels, err := s.metadata.OrgChannels(ctx, org)
	if err != nil {
		return err
	}
	for _, channel := range channels {
		if err := s.refreshChannel(ctx, channel); err != nil {
			return err
		}
	}
	return nil
}

// RefreshChannels refreshes the named channel records (all stored channels
// when ids is empty): channel info first, then the channel's video listing.
func (s *Service) RefreshChannels(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		records, err := s.store.ListChannels(nil)
		if err != nil {
			return err
		}
		for _, record := range records {
			ids = append(ids, record.ID())
		}
	}

	for _, id := range ids {
		channel, err := s.metadata.Channel(ctx, id)
		if err != nil {
			return err
		}
		if err := s.refreshChannel(ctx, channel); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) refreshChannel(ctx context.Context, channel *holodex.Channel) error {
	record, err := s.store.GetChannel(channel.ID)
	if err != nil {
		return err
	}
	if record == nil {
		record, err = s.store.CreateChannel(channel.ID, storage.ChannelMetadata{})
		if err != nil {
			return err
		}
	}

	if !record.HasFlag(storage.FlagHolodexPreserve) {
		if err := record.SetInfo(storage.HolodexJSON, channel.Raw); err != nil {
			return err
		}
	}

	if record.HasFlag(storage.FlagMentionsOnly) {
		return nil
	}
	return s.refreshVideos(ctx, record)
}

// refreshVideos lists the channel's videos and collabs and creates or
// refreshes a video record for each, including the channels a video mentions.
func (s *Service) refreshVideos(ctx context.Context, channel *storage.ChannelRecord) error {
	videos, err := s.metadata.ChannelVideos(ctx, channel.ID())
	if err != nil {
		return err
	}

	created := 0
	for _, video := range videos {
		channelID := channel.ID()
		if video.Channel != nil && video.Channel.ID != "" {
			channelID = video.Channel.ID
		}

		record, err := s.store.GetVideo(video.ID)
		if err != nil {
			return err
		}
		if record == nil {
			record, err = s.store.CreateVideo(video.ID, storage.VideoMetadata{ChannelID: channelID})
			if err != nil {
				return err
			}
			created++
		}

		if record.HasFlag(storage.FlagHolodexPreserve) {
			continue
		}
		if err := record.SetInfo(storage.HolodexJSON, video.Raw); err != nil {
			return err
		}
	}

	s.logger.Info("channel videos refreshed",
		zap.String("channel_id", channel.ID()),
		zap.Int("videos", len(videos)),
		zap.Int("created", created))
	return nil
}
