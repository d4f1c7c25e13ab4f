package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/foodi-storefront/api/internal/admin"
	"github.com/foodi-storefront/api/internal/apiclient"
	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/cart"
	"github.com/foodi-storefront/api/internal/catalog"
	"github.com/foodi-storefront/api/internal/checkout"
	"github.com/foodi-storefront/api/internal/identity"
	"github.com/foodi-storefront/api/internal/model"
	"github.com/foodi-storefront/api/internal/tracker"
	"github.com/shopspring/decimal"
)

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Account email")
	name := fs.String("name", "", "Display name")
	fs.Parse(args) //nolint:errcheck

	*email = strings.ToLower(strings.TrimSpace(*email))
	if *email == "" {
		return fmt.Errorf("login: -email is required")
	}
	if *name == "" {
		*name, _, _ = strings.Cut(*email, "@")
	}

	if err := a.public.RegisterUser(ctx, apiclient.RegisterUserRequest{Name: *name, Email: *email}); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if err := a.manager.HandleAuthChange(ctx, identity.AuthEvent{
		Kind:        identity.AuthLogin,
		Email:       *email,
		DisplayName: *name,
	}); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := a.saveProfile(*email, *name); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", *email)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.manager.HandleAuthChange(ctx, identity.AuthEvent{Kind: identity.AuthLogout}); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := os.Remove(a.profile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove profile: %w", err)
	}
	fmt.Println("Signed out")
	return nil
}

// updateProfile renames the signed-in user and keeps the saved profile in step.
func (a *app) updateProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	name := fs.String("name", "", "New display name")
	photo := fs.String("photo", "", "Photo URL")
	fs.Parse(args) //nolint:errcheck

	subject := a.manager.Subject()
	if subject == "" {
		a.navigator.ToLogin("profile")
		return apperr.ErrUnauthenticated
	}
	*name = strings.TrimSpace(*name)
	if *name == "" {
		return fmt.Errorf("profile: -name is required")
	}

	u, err := a.secure.UpdateProfile(ctx, apiclient.UpdateProfileRequest{Name: *name, PhotoURL: *photo})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if err := a.saveProfile(subject, u.Name); err != nil {
		return err
	}
	fmt.Printf("Profile updated: %s <%s>\n", u.Name, u.Email)
	return nil
}

func (a *app) menu(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("menu", flag.ExitOnError)
	search := fs.String("search", "", "Search query")
	category := fs.String("category", "all", "Category filter")
	sortBy := fs.String("sort", string(catalog.SortDefault), "A-Z, Z-A, low-to-high or high-to-low")
	sale := fs.Bool("sale", false, "Only discounted items")
	fs.Parse(args) //nolint:errcheck

	menu := catalog.NewClient(a.public)
	var items []model.MenuItem
	var err error
	if *search != "" {
		items, err = menu.Search(ctx, *search)
	} else {
		items, err = menu.FetchAll(ctx)
	}
	if err != nil {
		return err
	}

	items = catalog.FilterByCategory(items, *category)
	if *sale {
		items = catalog.OnSale(items)
	}
	items = catalog.Sort(items, catalog.SortOption(*sortBy))

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tDISCOUNT")
	for _, it := range items {
		price := money(it.Price)
		if it.Discount > 0 {
			price = fmt.Sprintf("%s (%s)", money(catalog.DiscountedPrice(it)), price)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\n", it.ID, it.Name, it.Category, price, it.Discount)
	}
	return tw.Flush()
}

func (a *app) cartStore() *cart.Store {
	return cart.NewStore(a.secure, a.manager, a.guard, a.notifier, a.navigator)
}

func (a *app) cart(ctx context.Context, args []string) error {
	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	store := a.cartStore()
	defer store.Close()

	entries, err := store.List(ctx)
	if err != nil {
		return err
	}

	switch action {
	case "list":
		printCart(entries)
		return nil
	case "add":
		fs := flag.NewFlagSet("cart add", flag.ExitOnError)
		qty := fs.Int("qty", 1, "Quantity")
		id, rest := firstArg(args)
		fs.Parse(rest) //nolint:errcheck
		if id == "" {
			return fmt.Errorf("cart add: menu item id is required")
		}
		item, err := catalog.NewClient(a.public).Get(ctx, id)
		if err != nil {
			return err
		}
		err = store.AddOrMerge(ctx, cart.AddRequest{Item: item, Quantity: *qty, ReturnTo: "cart add " + id})
		if err != nil {
			return err
		}
	case "inc", "dec", "rm":
		id, _ := firstArg(args)
		if id == "" {
			return fmt.Errorf("cart %s: cart entry id is required", action)
		}
		switch action {
		case "inc":
			err = store.Increment(ctx, id)
		case "dec":
			err = store.Decrement(ctx, id)
		default:
			err = store.Remove(ctx, id)
		}
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown cart action %q", action)
	}

	printCart(store.Entries())
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	id, _ := a.manager.Identity()

	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	info := checkout.ShippingInfo{}
	fs.StringVar(&info.FullName, "name", id.DisplayName, "Recipient name")
	fs.StringVar(&info.Phone, "phone", "", "Contact phone")
	fs.StringVar(&info.Address, "address", "", "Street address")
	fs.StringVar(&info.District, "district", "", "District")
	fs.StringVar(&info.Province, "province", "", "Province (hanoi, hochiminh, ...)")
	fs.StringVar(&info.Note, "note", "", "Note for the kitchen")
	dryRun := fs.Bool("quote", false, "Print the quote without placing the order")
	fs.Parse(args) //nolint:errcheck
	info.Email = a.manager.Subject()

	store := a.cartStore()
	defer store.Close()
	entries, err := store.List(ctx)
	if err != nil {
		return err
	}

	engine := checkout.NewEngine(a.secure, a.manager, store, a.notifier, a.navigator)
	q := engine.Quote(info, entries)
	fmt.Printf("Subtotal: %s\nShipping: %s\nTotal:    %s\n", money(q.Subtotal), money(q.ShippingFee), money(q.Total))
	if *dryRun {
		return nil
	}

	result, err := engine.Submit(ctx, info, entries)
	if err != nil {
		return err
	}
	fmt.Printf("Order %s placed (%s)\n", result.Order.ID, result.Order.Status)
	for _, f := range result.CleanupFailures {
		fmt.Printf("  cart entry %s was not removed: %v\n", f.EntryID, f.Err)
	}
	return nil
}

func (a *app) orders(ctx context.Context) error {
	subject := a.manager.Subject()
	if subject == "" {
		a.navigator.ToLogin("orders")
		return apperr.ErrUnauthenticated
	}
	orders, err := tracker.New(a.secure).ListMine(ctx, subject)
	if err != nil {
		return err
	}
	printOrders(orders)
	return nil
}

func (a *app) admin(ctx context.Context, args []string) error {
	action, args := firstArg(args)
	surface := admin.NewSurface(a.secure, a.manager, a.confirmer, a.notifier)

	switch action {
	case "orders":
		fs := flag.NewFlagSet("admin orders", flag.ExitOnError)
		watch := fs.Bool("watch", false, "Keep polling")
		fs.Parse(args) //nolint:errcheck

		t := tracker.New(a.secure)
		if !*watch {
			orders, err := t.ListAll(ctx)
			if err != nil {
				return err
			}
			printOrders(orders)
			return nil
		}
		poller := tracker.NewPoller(t, a.cfg.AdminPollInterval, func(orders []model.Order, err error) {
			if err != nil {
				return
			}
			fmt.Printf("--- %s ---\n", time.Now().Format(time.Kitchen))
			printOrders(orders)
		})
		return poller.Run(ctx)

	case "status":
		if len(args) != 2 {
			return fmt.Errorf("admin status: want ORDER_ID STATUS")
		}
		to, err := model.ParseStatus(args[1])
		if err != nil {
			return err
		}
		current, err := a.secure.GetOrder(ctx, args[0])
		if err != nil {
			return err
		}
		updated, err := surface.UpdateStatus(ctx, current.ID, current.Status, to)
		if err != nil {
			return err
		}
		fmt.Printf("Order %s is now %s\n", updated.ID, updated.Status)
		return nil

	case "delete-order":
		id, _ := firstArg(args)
		if id == "" {
			return fmt.Errorf("admin delete-order: order id is required")
		}
		return surface.DeleteOrder(ctx, id)

	case "users":
		users, err := surface.ListUsers(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
		for _, u := range users {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role)
		}
		return tw.Flush()

	case "promote", "delete-user":
		email, _ := firstArg(args)
		user, err := findUser(ctx, surface, email)
		if err != nil {
			return err
		}
		if action == "promote" {
			_, err = surface.PromoteToAdmin(ctx, user)
			return err
		}
		return surface.DeleteUser(ctx, user)

	case "menu-add":
		fs := flag.NewFlagSet("admin menu-add", flag.ExitOnError)
		req := apiclient.MenuItemRequest{}
		price := fs.String("price", "", "Price")
		fs.StringVar(&req.Name, "name", "", "Name")
		fs.StringVar(&req.Category, "category", "", "Category")
		fs.StringVar(&req.Image, "image", "", "Image URL")
		fs.StringVar(&req.Recipe, "recipe", "", "Recipe")
		fs.IntVar(&req.Discount, "discount", 0, "Discount percent")
		fs.Parse(args) //nolint:errcheck

		p, err := decimal.NewFromString(*price)
		if err != nil {
			return fmt.Errorf("admin menu-add: invalid -price %q: %w", *price, apperr.ErrValidationFailed)
		}
		req.Price = p
		item, err := surface.CreateMenuItem(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Created menu item %s\n", item.ID)
		return nil

	case "menu-rm":
		id, _ := firstArg(args)
		if id == "" {
			return fmt.Errorf("admin menu-rm: menu item id is required")
		}
		return surface.DeleteMenuItem(ctx, id)
	}
	return fmt.Errorf("unknown admin action %q", action)
}

func findUser(ctx context.Context, surface *admin.Surface, email string) (model.User, error) {
	if email == "" {
		return model.User{}, fmt.Errorf("user email is required")
	}
	users, err := surface.ListUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user %s: %w", email, apperr.ErrNotFound)
}

func firstArg(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	return args[0], args[1:]
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func printCart(entries []model.CartEntry) {
	if len(entries) == 0 {
		fmt.Println("Your cart is empty")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tITEM\tQTY\tPRICE\tTOTAL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.ID, e.Name, e.Quantity, money(e.Price), money(e.LineTotal()))
	}
	fmt.Fprintf(tw, "\t\t\tSubtotal\t%s\n", money(model.Subtotal(entries)))
	tw.Flush() //nolint:errcheck
}

func printOrders(orders []model.Order) {
	if len(orders) == 0 {
		fmt.Println("No orders")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLACED\tCUSTOMER\tITEMS\tTOTAL\tSTATUS")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			o.ID, o.CreatedAt.Local().Format("2006-01-02 15:04"), o.CustomerName,
			len(o.Items), money(o.TotalAmount), o.Status)
	}
	tw.Flush() //nolint:errcheck
}
