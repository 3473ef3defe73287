package fetcher

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONArray decodes a JSON array streaming, sending each element to a channel.
// Expects input in the form [{...},{...}]. Numbers decode as json.Number so
// identifiers like OSM ids keep every digit.
// Both channels are closed when processing completes.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)
		decoder.UseNumber()

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}

		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		if err := streamElements(ctx, decoder, outCh); err != nil {
			errCh <- err
		}
	}()

	return outCh, errCh
}

// DecodeJSONField streams the elements of the array stored under key in a
// top-level JSON object, such as "elements" in an Overpass response or
// "features" in a GeoJSON FeatureCollection. Other members are skipped. A
// missing key yields no elements and no error.
func DecodeJSONField[T any](ctx context.Context, r io.Reader, key string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)
		decoder.UseNumber()

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '{' {
			errCh <- eris.Errorf("json: expected '{', got %v", tok)
			return
		}

		for decoder.More() {
			tok, err := decoder.Token()
			if err != nil {
				errCh <- eris.Wrap(err, "json: read object key")
				return
			}
			name, _ := tok.(string)
			if name != key {
				var skip json.RawMessage
				if err := decoder.Decode(&skip); err != nil {
					errCh <- eris.Wrapf(err, "json: skip member %q", name)
					return
				}
				continue
			}

			tok, err = decoder.Token()
			if err != nil {
				errCh <- eris.Wrapf(err, "json: read %q", key)
				return
			}
			if delim, ok := tok.(json.Delim); !ok || delim != '[' {
				errCh <- eris.Errorf("json: %q is not an array", key)
				return
			}
			if err := streamElements(ctx, decoder, outCh); err != nil {
				errCh <- err
			}
			return
		}
	}()

	return outCh, errCh
}

// streamElements decodes array elements until the closing bracket, which it
// consumes.
func streamElements[T any](ctx context.Context, decoder *json.Decoder, outCh chan<- T) error {
	for decoder.More() {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "json: context cancelled")
		}

		var item T
		if err := decoder.Decode(&item); err != nil {
			return eris.Wrap(err, "json: decode element")
		}

		select {
		case outCh <- item:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "json: context cancelled")
		}
	}

	if _, err := decoder.Token(); err != nil && err != io.EOF {
		return eris.Wrap(err, "json: read closing token")
	}
	return nil
}

// DecodeJSONObject decodes a single JSON object from a reader.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}
