// Package archive fetches files for unavailable YouTube videos from
// third-party stream archives.
package archive

import (
	"context"
	"strings"
)

// FileType classifies an archived file by its role.
type FileType string

const (
	FileInfo        FileType = "info"
	FileChat        FileType = "chat"
	FileVideo       FileType = "video"
	FileVideoOnly   FileType = "video-only"
	FileAudioOnly   FileType = "audio-only"
	FileThumbnail   FileType = "thumbnail"
	FileSubtitle    FileType = "subtitle"
	FileUnsupported FileType = "unsupported"
)

// File is one archived file belonging to a video.
type File struct {
	Type FileType
	Name string
	Size int64
}

// Mirror is a stream archive that can list and serve a video's files.
type Mirror interface {
	Name() string
	ListFiles(ctx context.Context, videoID string) ([]File, error)
	Download(ctx context.Context, videoID, fileName string) ([]byte, error)
}

// Classify derives the file type from an archived file's name. Archives store
// yt-dlp output, so the naming conventions are shared across mirrors.
func Classify(videoID, name string) FileType {
	switch {
	case strings.HasSuffix(name, ".info.json"), strings.HasSuffix(name, ".info"):
		return FileInfo
	case strings.Contains(name, ".live_chat.json"), strings.HasSuffix(name, ".chat.json"):
		return FileChat
	case strings.HasSuffix(name, ".srt"):
		return FileSubtitle
	case strings.HasSuffix(name, ".webp"), strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".png"):
		return FileThumbnail
	case name == videoID+".webm", name == videoID+".mp4", name == videoID+".mkv":
		return FileVideo
	case strings.HasSuffix(name, ".m4a"), strings.HasSuffix(name, ".opus"), strings.HasSuffix(name, ".ogg"), strings.HasSuffix(name, ".mp3"):
		return FileAudioOnly
	case strings.HasSuffix(name, ".webm"), strings.HasSuffix(name, ".mp4"), strings.HasSuffix(name, ".mkv"):
		// split stream halves carry a format id, "VIDEOID.f303.webm"
		return FileVideoOnly
	default:
		return FileUnsupported
	}
}

// PickAudio returns the best audio source among the files: a dedicated audio
// stream when available, a muxed video otherwise.
func PickAudio(files []File) (File, bool) {
	for _, f := range files {
		if f.Type == FileAudioOnly {
			return f, true
		}
	}
	for _, f := range files {
		if f.Type == FileVideo {
			return f, true
		}
	}
	return File{}, false
}
