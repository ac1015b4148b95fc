package resources

import (
	"context"
	"io"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/prismctl/prismctl/internal/driver"
	"github.com/prismctl/prismctl/internal/entity"
	"github.com/prismctl/prismctl/internal/specbuilder"
	"github.com/rs/zerolog/log"
)

const imageSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "desc": {"type": "string"},
    "image_type": {"enum": ["ISO_IMAGE", "DISK_IMAGE"]},
    "source_uri": {"type": "string", "minLength": 1},
    "source_path": {"type": "string", "minLength": 1}
  },
  "not": {"required": ["source_uri", "source_path"]}
}`

// sniffSize covers the ISO 9660 volume descriptor at offset 32769.
const sniffSize = 64 << 10

const (
	ImageISO  = "ISO_IMAGE"
	ImageDisk = "DISK_IMAGE"
)

// ImageWaitTimeout bounds image tasks, which copy whole disks.
const ImageWaitTimeout = 30 * time.Minute

// Images manages /images. A source_path is uploaded once the image entity
// exists.
func Images() Resource {
	r := base("images", "image")
	r.Schema = imageSchema
	r.ReadBeforeUpdate = true
	r.WaitTimeout = ImageWaitTimeout
	r.Builder = specbuilder.Builder[Spec]{
		Default: v3Default("image", `{"name":"","resources":{"image_type":"DISK_IMAGE"}}`),
		Steps: append(commonSteps(),
			Step{Param: "image_type", Fn: specbuilder.SetStep("spec.resources.image_type")},
			Step{Param: "source_uri", Fn: specbuilder.SetStep("spec.resources.source_uri")},
		),
	}
	r.Prepare = prepareImage
	r.AfterMutation = uploadImage
	return r
}

func prepareImage(_ context.Context, _ driver.Env, params map[string]any) (map[string]any, error) {
	path, _ := params["source_path"].(string)
	if path == "" {
		return params, nil
	}
	if _, ok := params["image_type"]; ok {
		return params, nil
	}
	kind, err := DetectImageType(path)
	if err != nil {
		return nil, driver.ErrInvalidInput.MsgErr("unable to read source_path", err)
	}
	out := maps.Clone(params)
	out["image_type"] = kind
	return out, nil
}

// DetectImageType sniffs the file at path. ISO 9660 images are ISO_IMAGE,
// everything else DISK_IMAGE.
func DetectImageType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, sniffSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	kind, _ := filetype.Match(header[:n])
	if kind.Extension == "iso" {
		return ImageISO, nil
	}
	if kind == filetype.Unknown && strings.EqualFold(filepath.Ext(path), ".iso") {
		return ImageISO, nil
	}
	return ImageDisk, nil
}

// uploadImage waits for the image to be created, then uploads source_path.
// The result then tracks the upload task.
func uploadImage(ctx context.Context, env driver.Env, res *driver.Result, params map[string]any) error {
	path, _ := params["source_path"].(string)
	if path == "" {
		return nil
	}
	if res.TaskUUID != "" {
		task, err := env.Poller.WaitForCompletion(ctx, res.TaskUUID, ImageWaitTimeout)
		if err != nil {
			return err
		}
		if res.UUID == "" {
			for _, e := range task.Entities {
				if e.Kind == "image" {
					res.UUID = e.UUID
				}
			}
		}
	}
	if res.UUID == "" {
		return driver.ErrMissingUUID.New("image uuid unknown after create")
	}

	log.Debug().Str("image_uuid", res.UUID).Str("path", path).Msg("uploading image")
	resp, err := env.Client.UploadFile(ctx, res.UUID, path, entity.Method(http.MethodPut), entity.Endpoint("file"))
	if err != nil {
		return err
	}
	if id := resp.Get("status.execution_context.task_uuid").String(); id != "" {
		res.TaskUUID = id
	}
	return nil
}
