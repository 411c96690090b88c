package command

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/notekeep-go/internal/core/domain"
)

// RegisterCommand creates the register command.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name", Required: true},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address", Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prompted when omitted)"},
			&cli.StringFlag{Name: "password-file", Usage: "Read the password from a file, - for stdin"},
		},
		Action: registerAction,
	}
}

func registerAction(c *cli.Context) error {
	password, err := readPassword(c, c.String("password"), c.String("password-file"))
	if err != nil {
		return err
	}
	in := domain.RegisterInput{
		Name:     strings.TrimSpace(c.String("name")),
		Email:    strings.TrimSpace(c.String("email")),
		Password: password,
	}
	if err := in.Validate(); err != nil {
		return err
	}

	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	stop := spin(c, "Registering...")
	res, err := st.API.Auth.Register(ctx, in)
	stop()
	if err != nil {
		return err
	}

	status(c, "Registered %s. Run 'notekeep login' to sign in.", res.Identity.Email)
	return render(c, identityView{res.Identity})
}

// LoginCommand creates the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and persist the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address", Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (prompted when omitted)"},
			&cli.StringFlag{Name: "password-file", Usage: "Read the password from a file, - for stdin"},
		},
		Action: loginAction,
	}
}

func loginAction(c *cli.Context) error {
	password, err := readPassword(c, c.String("password"), c.String("password-file"))
	if err != nil {
		return err
	}
	in := domain.LoginInput{Email: strings.TrimSpace(c.String("email")), Password: password}
	if err := in.Validate(); err != nil {
		return err
	}

	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	stop := spin(c, "Signing in...")
	res, err := st.API.Auth.Login(ctx, in)
	stop()
	if err != nil {
		return err
	}

	status(c, "Logged in as %s <%s>", res.Identity.Name, res.Identity.Email)
	return render(c, newSessionView(st.API.Auth.Session(), backendName(c)))
}

// LogoutCommand creates the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Forget the stored session",
		Action: logoutAction,
	}
}

func logoutAction(c *cli.Context) error {
	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if !st.API.Auth.Session().IsAuthenticated() {
		status(c, "Not logged in.")
		return nil
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	if err := st.API.Auth.Logout(ctx); err != nil {
		return err
	}
	status(c, "Logged out.")
	return nil
}

// WhoamiCommand creates the whoami command.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the current session",
		Action: whoamiAction,
	}
}

func whoamiAction(c *cli.Context) error {
	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	return render(c, newSessionView(st.API.Auth.Session(), backendName(c)))
}

// ProfileCommand creates the profile command group.
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show or change the account profile",
		Subcommands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Show the profile",
				Action: profileGetAction,
			},
			{
				Name:  "update",
				Usage: "Change the name or email",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New display name"},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "New email address"},
				},
				Action: profileUpdateAction,
			},
		},
	}
}

func profileGetAction(c *cli.Context) error {
	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	stop := spin(c, "Loading profile...")
	p, err := st.API.Auth.Profile(ctx)
	stop()
	if err != nil {
		return err
	}
	return render(c, profileView{*p})
}

func profileUpdateAction(c *cli.Context) error {
	in := domain.ProfileUpdate{
		Name:  strings.TrimSpace(c.String("name")),
		Email: strings.TrimSpace(c.String("email")),
	}
	if err := in.Validate(); err != nil {
		return err
	}

	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	stop := spin(c, "Updating profile...")
	p, err := st.API.Auth.UpdateProfile(ctx, in)
	stop()
	if err != nil {
		return err
	}
	status(c, "Profile updated.")
	return render(c, profileView{*p})
}
